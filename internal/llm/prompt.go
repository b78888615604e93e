package llm

import "strings"

// PromptVersion changes whenever CaseInstruction or the request wording does
const PromptVersion = "1"

// CaseInstruction is the fixed instruction sent with every document
const CaseInstruction = "You extract structured fields from police case reports. " +
	"Return ONLY a JSON object with keys: district, city, year, month, occurrence. " +
	"Year and month must be numbers. Use null if missing."

// BuildCaseRequest wraps extracted document text into a completion request
func BuildCaseRequest(text string) CompletionRequest {
	var b strings.Builder
	b.WriteString("Extract the case data from the report below. ")
	b.WriteString("Return ONLY the JSON object.\n\n")
	b.WriteString("REPORT:\n")
	b.WriteString(text)

	return CompletionRequest{
		System: CaseInstruction,
		Prompt: b.String(),
		JSON:   true,
	}
}

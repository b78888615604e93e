package llm

import (
	"context"
	"time"
)

// Provider defines the interface for remote extraction backends.
// Implementations make exactly one remote call per Complete and never retry.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends the instruction and prompt and returns the raw response text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one remote call
type CompletionRequest struct {
	// System is the fixed extraction instruction
	System string

	// Prompt carries the document text
	Prompt string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// JSON asks the backend to constrain output to a JSON object where supported
	JSON bool
}

// CompletionResponse contains the raw output of one remote call
type CompletionResponse struct {
	// Text is the unparsed response body
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "ollama", "openai", "anthropic"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout bounds the HTTP client; the per-call deadline comes from the caller's context
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "ollama",
		Model:     "llama3.2",
		Timeout:   2 * time.Minute,
		MaxTokens: 512,
	}
}

package model

import "encoding/json"

// Canonical field names, as they appear in the result file
const (
	FieldDistrict   = "district"
	FieldCity       = "city"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldOccurrence = "occurrence"
)

// CanonicalFields lists every canonical field in output order
var CanonicalFields = []string{FieldDistrict, FieldCity, FieldYear, FieldMonth, FieldOccurrence}

// CaseFields is the normalized shape extracted from one case report
type CaseFields struct {
	District   Field[string] `json:"district"`
	City       Field[string] `json:"city"`
	Year       Field[int]    `json:"year"`
	Month      Field[int]    `json:"month"`
	Occurrence Field[string] `json:"occurrence"`
}

// InvalidNames returns the names of fields that were provided but unparseable
func (c CaseFields) InvalidNames() []string {
	var out []string
	states := []Presence{
		c.District.State(),
		c.City.State(),
		c.Year.State(),
		c.Month.State(),
		c.Occurrence.State(),
	}
	for i, s := range states {
		if s == Invalid {
			out = append(out, CanonicalFields[i])
		}
	}
	return out
}

// CaseRecord is the persisted outcome of processing one source document.
//
// A successful record has a nil Error and normalized fields. A failed
// record has every canonical field Absent and a non-nil Error.
type CaseRecord struct {
	CaseFields

	Source        string   `json:"source"`                   // Originating document path
	Success       bool     `json:"success"`                  // Whether extraction produced fields
	Error         *string  `json:"error"`                    // Last error message on failure
	InvalidFields []string `json:"invalid_fields,omitempty"` // Fields present in the response but unparseable
}

// NewSuccess builds a successful record from normalized fields
func NewSuccess(source string, fields CaseFields) CaseRecord {
	return CaseRecord{
		CaseFields:    fields,
		Source:        source,
		Success:       true,
		InvalidFields: fields.InvalidNames(),
	}
}

// NewFailure builds a failed record carrying msg
func NewFailure(source string, msg string) CaseRecord {
	return CaseRecord{
		Source:  source,
		Success: false,
		Error:   &msg,
	}
}

// ErrorMessage returns the error message, or "" for successful records
func (r CaseRecord) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// UnmarshalJSON restores the Invalid state of fields listed in invalid_fields
func (r *CaseRecord) UnmarshalJSON(data []byte) error {
	type plain CaseRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = CaseRecord(p)

	for _, name := range r.InvalidFields {
		switch name {
		case FieldDistrict:
			r.District = Unparsed[string]()
		case FieldCity:
			r.City = Unparsed[string]()
		case FieldYear:
			r.Year = Unparsed[int]()
		case FieldMonth:
			r.Month = Unparsed[int]()
		case FieldOccurrence:
			r.Occurrence = Unparsed[string]()
		}
	}
	return nil
}

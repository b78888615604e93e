package worker

import (
	"context"
	"errors"

	"github.com/ppiankov/casefile/internal/extract"
	"github.com/ppiankov/casefile/internal/llm"
	"github.com/ppiankov/casefile/internal/model"
	"github.com/ppiankov/casefile/internal/parse"
)

// OutcomeKind is the closed set of results for one item
type OutcomeKind int

const (
	OutcomeSuccess    OutcomeKind = iota
	OutcomeExtraction             // document could not be turned into text; never retried
	OutcomeTransport              // remote call failed or timed out
	OutcomeMalformed              // no JSON object in the response
	OutcomeValidation             // normalized fields failed the case schema
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeExtraction:
		return "extraction"
	case OutcomeTransport:
		return "transport"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may change the result
func (k OutcomeKind) Retryable() bool {
	switch k {
	case OutcomeTransport, OutcomeMalformed, OutcomeValidation:
		return true
	default:
		return false
	}
}

// Outcome is the result of processing one item
type Outcome struct {
	Kind     OutcomeKind
	Fields   model.CaseFields // set when Kind is OutcomeSuccess
	Err      error            // last error otherwise
	Attempts int              // remote attempts made
	Cached   bool             // answered from the cache
}

// Record converts the outcome into the persisted record for source
func (o Outcome) Record(source string) model.CaseRecord {
	switch o.Kind {
	case OutcomeSuccess:
		return model.NewSuccess(source, o.Fields)
	case OutcomeExtraction, OutcomeTransport, OutcomeMalformed, OutcomeValidation:
		return model.NewFailure(source, o.message())
	default:
		return model.NewFailure(source, "unclassified outcome: "+o.message())
	}
}

func (o Outcome) message() string {
	if o.Err == nil {
		return o.Kind.String() + " failure"
	}
	return o.Err.Error()
}

// Classify maps an error onto its outcome kind. Unrecognized errors from a
// remote call are treated as transport failures.
func Classify(err error) OutcomeKind {
	var (
		extErr       *extract.Error
		transportErr *llm.TransportError
		validErr     *parse.ValidationError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &extErr):
		return OutcomeExtraction
	case errors.As(err, &transportErr):
		return OutcomeTransport
	case errors.Is(err, parse.ErrMalformedResponse):
		return OutcomeMalformed
	case errors.As(err, &validErr):
		return OutcomeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTransport
	default:
		return OutcomeTransport
	}
}

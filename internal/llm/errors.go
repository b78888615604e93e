package llm

import (
	"context"
	"errors"
	"fmt"
)

// TransportError reports that the remote service could not be reached or
// did not return a usable response body. It covers network failures,
// per-call timeouts and non-2xx statuses.
type TransportError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

func transportErr(provider string, status int, err error) error {
	return &TransportError{Provider: provider, StatusCode: status, Err: err}
}

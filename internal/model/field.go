package model

import (
	"bytes"
	"encoding/json"
)

// Presence describes whether a canonical field carries a usable value
type Presence uint8

const (
	Absent  Presence = iota // Not provided, or null
	Present                 // Provided and coerced to its canonical type
	Invalid                 // Provided but could not be coerced
)

func (p Presence) String() string {
	switch p {
	case Present:
		return "present"
	case Invalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Field holds a canonical value together with its presence state.
// The zero value is Absent.
//
// On the wire a Present field is its plain JSON value; Absent and Invalid
// are both null. CaseRecord carries the list of invalid field names so the
// distinction survives a round trip through the result file.
type Field[T any] struct {
	value T
	state Presence
}

// Known returns a Present field holding v
func Known[T any](v T) Field[T] {
	return Field[T]{value: v, state: Present}
}

// Unknown returns an Absent field
func Unknown[T any]() Field[T] {
	return Field[T]{}
}

// Unparsed returns an Invalid field
func Unparsed[T any]() Field[T] {
	return Field[T]{state: Invalid}
}

// Get returns the value and whether it is Present
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == Present
}

// ValueOr returns the value if Present, otherwise fallback
func (f Field[T]) ValueOr(fallback T) T {
	if f.state == Present {
		return f.value
	}
	return fallback
}

// State returns the presence state
func (f Field[T]) State() Presence {
	return f.state
}

// IsKnown reports whether the field is Present
func (f Field[T]) IsKnown() bool {
	return f.state == Present
}

// MarshalJSON implements json.Marshaler
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != Present {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Known(v)
	return nil
}

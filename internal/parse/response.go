// Package parse turns raw model output into normalized case fields.
package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedResponse means no JSON object could be isolated from a response
var ErrMalformedResponse = errors.New("malformed response")

// FindObject returns the JSON object carried by raw.
//
// The whole text is tried first. Failing that, the span from the first '{'
// to the last '}' is tried. Broken or truncated objects are not repaired.
// Numbers are kept as json.Number so Int can tell integers from floats.
func FindObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	if obj, err := decodeObject(text); err == nil {
		return obj, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	obj, err := decodeObject(text[start : end+1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return obj, nil
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not an object")
	}
	// anything but end of input after the object, stray brackets included
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("unexpected data after object")
	}
	return obj, nil
}

// Package extract converts source documents into plain text.
//
// Extraction failures are final for the document: the batch driver records
// them without contacting the remote service and never retries them.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor converts one document into plain text
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Error reports that a document could not be converted to text
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(source string, format string, args ...any) *Error {
	return &Error{Source: source, Err: fmt.Errorf(format, args...)}
}

// Registry dispatches extraction by file extension
type Registry struct {
	byExt    map[string]Extractor
	maxBytes int64
}

// NewRegistry creates an empty registry. maxBytes caps the returned text;
// zero or less disables the cap.
func NewRegistry(maxBytes int64) *Registry {
	return &Registry{
		byExt:    make(map[string]Extractor),
		maxBytes: maxBytes,
	}
}

// NewDefaultRegistry registers the built-in extractors
func NewDefaultRegistry(pdftotext string, maxBytes int64) *Registry {
	r := NewRegistry(maxBytes)
	plain := NewPlainExtractor()
	r.Register(plain, ".txt", ".text", ".md")
	r.Register(NewHTMLExtractor(), ".html", ".htm")
	r.Register(NewPDFExtractor(pdftotext, nil), ".pdf")
	return r
}

// Register binds an extractor to one or more extensions
func (r *Registry) Register(e Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[normalizeExt(ext)] = e
	}
}

// Supports reports whether an extractor is registered for path's extension
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[normalizeExt(filepath.Ext(path))]
	return ok
}

// Extract implements Extractor. Every failure is returned as *Error.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	ext := normalizeExt(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return "", newError(path, "unsupported document type %q", ext)
	}

	text, err := e.Extract(ctx, path)
	if err != nil {
		var extErr *Error
		if errors.As(err, &extErr) {
			return "", err
		}
		return "", &Error{Source: path, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", newError(path, "no extractable text in %s", filepath.Base(path))
	}
	if r.maxBytes > 0 && int64(len(text)) > r.maxBytes {
		text = truncateUTF8(text, int(r.maxBytes))
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

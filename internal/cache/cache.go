// Package cache holds normalized results for document text already seen,
// in memory for one run or on disk across runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ppiankov/casefile/internal/model"
)

// Cache stores normalized fields keyed by document text
type Cache interface {
	Get(key string) (model.CaseFields, bool)
	Set(key string, fields model.CaseFields)
	Len() int
}

// Scope names what produced a cached answer. Results from one provider,
// model or prompt version are never served to another.
func Scope(provider, model, promptVersion string) string {
	return provider + "/" + model + "/" + promptVersion
}

// TextKey generates a cache key from a scope and extracted document text
func TextKey(scope, text string) string {
	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "casefile:v1:" + hex.EncodeToString(h.Sum(nil))
}

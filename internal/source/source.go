// Package source enumerates the documents a batch run processes.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrInputDir is returned when the input directory is missing or not a directory
	ErrInputDir = errors.New("input directory not found")
	// ErrNoDocuments is returned when no file in the directory matches the extensions
	ErrNoDocuments = errors.New("no documents found")
)

// Item is one document to process
type Item struct {
	ID   string // Path of the document, used as the record's source
	Name string // Base name, used for progress and logs
	Key  string // Ordering key
}

// Enumerate lists the regular files in dir whose extension matches one of
// exts (case-insensitive), sorted lexicographically by name. Subdirectories
// are not descended into.
func Enumerate(dir string, exts []string) ([]Item, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputDir, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputDir, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	allowed := normalizeExts(exts)
	var items []Item
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if _, ok := allowed[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		items = append(items, Item{
			ID:   filepath.Join(dir, name),
			Name: name,
			Key:  name,
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w in %s (extensions: %s)", ErrNoDocuments, dir, strings.Join(exts, ", "))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func normalizeExts(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[e] = struct{}{}
	}
	return out
}

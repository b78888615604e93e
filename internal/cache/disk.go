package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/casefile/internal/model"
)

// DiskCache persists normalized fields across runs, one file per key.
// A zero ttl keeps entries forever.
type DiskCache struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration, logger *slog.Logger) *DiskCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskCache{
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}
}

// The record form keeps invalid_fields, so Invalid survives the round trip.
type diskEntry struct {
	Record    model.CaseRecord `json:"record"`
	ExpiresAt time.Time        `json:"expires_at,omitzero"`
}

// Get retrieves fields stored under key. Unreadable and expired entries
// are misses.
func (c *DiskCache) Get(key string) (model.CaseFields, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return model.CaseFields{}, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Debug("cache.disk.corrupt", "path", path, "error", err)
		return model.CaseFields{}, false
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return model.CaseFields{}, false
	}

	return entry.Record.CaseFields, true
}

// Set stores fields under key. A failed write only costs a future remote
// call, so it is logged rather than returned.
func (c *DiskCache) Set(key string, fields model.CaseFields) {
	if err := c.write(key, fields); err != nil {
		c.logger.Warn("cache.disk.write_failed", "key", key, "error", err)
	}
}

func (c *DiskCache) write(key string, fields model.CaseFields) error {
	entry := diskEntry{Record: model.NewSuccess("", fields)}
	if c.ttl > 0 {
		entry.ExpiresAt = time.Now().Add(c.ttl)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Len returns the number of entries on disk, expired ones included
func (c *DiskCache) Len() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".cache" {
			n++
		}
	}
	return n
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(key, ":", "_")+".cache")
}

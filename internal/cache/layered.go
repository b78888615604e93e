package cache

import (
	"log/slog"
	"time"

	"github.com/ppiankov/casefile/internal/model"
)

// LayeredCache checks memory first, then disk
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewLayeredCache creates a memory cache backed by a disk cache in diskDir
func NewLayeredCache(diskDir string, diskTTL time.Duration, logger *slog.Logger) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(),
		disk:   NewDiskCache(diskDir, diskTTL, logger),
	}
}

// Get retrieves fields from memory, falling back to disk
func (c *LayeredCache) Get(key string) (model.CaseFields, bool) {
	if fields, found := c.memory.Get(key); found {
		return fields, true
	}

	if fields, found := c.disk.Get(key); found {
		// Promote to memory
		c.memory.Set(key, fields)
		return fields, true
	}

	return model.CaseFields{}, false
}

// Set stores fields in both layers
func (c *LayeredCache) Set(key string, fields model.CaseFields) {
	c.memory.Set(key, fields)
	c.disk.Set(key, fields)
}

// Len returns the number of persisted entries
func (c *LayeredCache) Len() int {
	return c.disk.Len()
}

// Clear drops both layers
func (c *LayeredCache) Clear() error {
	c.memory.cache.Flush()
	return c.disk.Clear()
}

package cache

import (
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/casefile/internal/model"
)

// MemoryCache implements Cache in process memory. Entries never expire;
// the cache lives for one run and is dropped with it.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates an empty memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves fields stored under key
func (c *MemoryCache) Get(key string) (model.CaseFields, bool) {
	if val, found := c.cache.Get(key); found {
		return val.(model.CaseFields), true
	}
	return model.CaseFields{}, false
}

// Set stores fields under key
func (c *MemoryCache) Set(key string, fields model.CaseFields) {
	c.cache.Set(key, fields, gocache.NoExpiration)
}

// Len returns the number of stored entries
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

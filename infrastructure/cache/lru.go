// Package cache provides search.VectorCache implementations for query
// embeddings.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/helixml/openflights/domain/search"
)

// LRU is an in-process least-recently-used vector cache.
type LRU struct {
	entries *lru.Cache[string, search.Vector]
}

// NewLRU creates an LRU holding at most capacity vectors. A capacity below
// one yields a cache that stores nothing.
func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		return &LRU{}
	}
	entries, err := lru.New[string, search.Vector](capacity)
	if err != nil {
		return &LRU{}
	}
	return &LRU{entries: entries}
}

// Get returns a copy of the cached vector.
func (c *LRU) Get(_ context.Context, key string) (search.Vector, bool) {
	if c.entries == nil {
		return nil, false
	}
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// Put stores a copy of v, evicting the least recently used entry when full.
func (c *LRU) Put(_ context.Context, key string, v search.Vector) {
	if c.entries == nil {
		return
	}
	c.entries.Add(key, v.Clone())
}

// Len returns the number of cached vectors.
func (c *LRU) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pcos-screening-server/internal/domain"
)

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, domain.ClassificationResult]
}

// NewMemoryCache creates a memory cache holding at most maxItems entries for ttl.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, domain.ClassificationResult](maxItems, nil, ttl),
	}
}

// Get implements domain.ResultCache.
func (c *MemoryCache) Get(_ context.Context, key string) (domain.ClassificationResult, bool, error) {
	result, ok := c.lru.Get(key)
	if !ok {
		return domain.ClassificationResult{}, false, nil
	}
	return result.Clone(), true, nil
}

// Set implements domain.ResultCache.
func (c *MemoryCache) Set(_ context.Context, key string, result domain.ClassificationResult) error {
	c.lru.Add(key, result.Clone())
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

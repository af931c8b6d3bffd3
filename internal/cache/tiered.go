package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/domain"
)

// TieredCache checks a fast local tier before a shared remote tier and
// back-fills the local tier on a remote hit. Remote errors are logged and
// treated as misses so a Redis outage never blocks a screening.
type TieredCache struct {
	local  domain.ResultCache
	remote domain.ResultCache
	logger *logrus.Logger
}

// NewTieredCache creates a two-tier cache. remote may be nil.
func NewTieredCache(local, remote domain.ResultCache, logger *logrus.Logger) *TieredCache {
	return &TieredCache{local: local, remote: remote, logger: logger}
}

// Get implements domain.ResultCache.
func (c *TieredCache) Get(ctx context.Context, key string) (domain.ClassificationResult, bool, error) {
	if result, ok, err := c.local.Get(ctx, key); err == nil && ok {
		return result, true, nil
	}
	if c.remote == nil {
		return domain.ClassificationResult{}, false, nil
	}

	result, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).Warn("Remote cache lookup failed")
		return domain.ClassificationResult{}, false, nil
	}
	if ok {
		_ = c.local.Set(ctx, key, result)
	}
	return result, ok, nil
}

// Set implements domain.ResultCache.
func (c *TieredCache) Set(ctx context.Context, key string, result domain.ClassificationResult) error {
	if err := c.local.Set(ctx, key, result); err != nil {
		return err
	}
	if c.remote != nil {
		if err := c.remote.Set(ctx, key, result); err != nil {
			c.logger.WithError(err).Warn("Remote cache write failed")
		}
	}
	return nil
}

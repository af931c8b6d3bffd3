package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pcos-screening-server/internal/domain"
)

// RedisCache shares results between server replicas.
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// cachedResult represents a cached result with metadata
type cachedResult struct {
	Result    domain.ClassificationResult `json:"result"`
	CachedAt  time.Time                   `json:"cached_at"`
	ExpiresAt time.Time                   `json:"expires_at"`
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, defaultTTL: ttl}, nil
}

// Get implements domain.ResultCache.
func (c *RedisCache) Get(ctx context.Context, key string) (domain.ClassificationResult, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ClassificationResult{}, false, nil
	}
	if err != nil {
		return domain.ClassificationResult{}, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	var cached cachedResult
	if err := json.Unmarshal(val, &cached); err != nil {
		// Remove corrupted cache entry
		c.client.Del(ctx, key)
		return domain.ClassificationResult{}, false, nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.client.Del(ctx, key)
		return domain.ClassificationResult{}, false, nil
	}
	return cached.Result, true, nil
}

// Set implements domain.ResultCache.
func (c *RedisCache) Set(ctx context.Context, key string, result domain.ClassificationResult) error {
	now := time.Now()
	data, err := json.Marshal(cachedResult{
		Result:    result,
		CachedAt:  now,
		ExpiresAt: now.Add(c.defaultTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cached result: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity for health endpoints.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Package redis provides a Redis-backed summary cache, so several
// newsdigest processes can share generated summaries.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// keyPrefix namespaces cache entries inside a shared Redis database.
const keyPrefix = "newsdigest:summary:"

// Ensure SummaryCache implements the interface.
var _ driven.SummaryCache = (*SummaryCache)(nil)

// SummaryCache stores generated text in Redis. Expiry is delegated to
// Redis key TTLs.
type SummaryCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSummaryCache connects to redisURL and verifies the connection.
// A value that is not a redis:// URL is treated as a host:port address.
func NewSummaryCache(ctx context.Context, redisURL string, ttl time.Duration) (*SummaryCache, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("%w: redis url is required", domain.ErrInvalidInput)
	}

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		opt = &goredis.Options{Addr: redisURL}
	}

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &SummaryCache{client: client, ttl: ttl}, nil
}

// Get returns the cached text, or domain.ErrCacheMiss.
func (c *SummaryCache) Get(ctx context.Context, key string) (string, error) {
	text, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return text, nil
}

// Put stores text under key with the configured TTL.
func (c *SummaryCache) Put(ctx context.Context, key, text string) error {
	if err := c.client.Set(ctx, keyPrefix+key, text, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Prune is a no-op: Redis expires keys itself.
func (c *SummaryCache) Prune(_ context.Context) (int, error) {
	return 0, nil
}

// Len counts cached entries under the newsdigest prefix.
func (c *SummaryCache) Len(ctx context.Context) (int, error) {
	n := 0
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection.
func (c *SummaryCache) Close() error {
	return c.client.Close()
}

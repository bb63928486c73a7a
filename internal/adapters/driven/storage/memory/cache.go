package memory

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure SummaryCache implements the interface.
var _ driven.SummaryCache = (*SummaryCache)(nil)

type cacheEntry struct {
	text     string
	storedAt time.Time
}

// SummaryCache is a size-bounded LRU cache of generated summaries.
// The least recently used entry is evicted once the size limit is hit,
// and entries older than the TTL are treated as misses.
type SummaryCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

// NewSummaryCache creates an LRU cache holding at most size entries.
// A zero ttl keeps entries until they are evicted.
func NewSummaryCache(size int, ttl time.Duration) (*SummaryCache, error) {
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &SummaryCache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Get returns the cached text for key, or domain.ErrCacheMiss.
func (c *SummaryCache) Get(_ context.Context, key string) (string, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return "", domain.ErrCacheMiss
	}
	if c.expired(entry) {
		c.entries.Remove(key)
		return "", domain.ErrCacheMiss
	}
	return entry.text, nil
}

// Put stores text under key.
func (c *SummaryCache) Put(_ context.Context, key, text string) error {
	c.entries.Add(key, cacheEntry{text: text, storedAt: c.now()})
	return nil
}

// Prune removes expired entries and returns how many were dropped.
func (c *SummaryCache) Prune(_ context.Context) (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	removed := 0
	for _, key := range c.entries.Keys() {
		if entry, ok := c.entries.Peek(key); ok && c.expired(entry) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of cached entries.
func (c *SummaryCache) Len() int {
	return c.entries.Len()
}

func (c *SummaryCache) expired(entry cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl
}

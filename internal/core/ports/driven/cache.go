package driven

import "context"

// SummaryCache stores generated text keyed by a hash of the exact input.
// Implementations must be safe for concurrent use.
type SummaryCache interface {
	// Get returns the cached text, or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)

	// Put stores text under key, replacing any existing entry.
	Put(ctx context.Context, key, text string) error

	// Prune removes expired entries and returns how many were removed.
	// Caches without expiry return zero.
	Prune(ctx context.Context) (int, error)
}

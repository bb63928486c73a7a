package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// summaryCache implements driven.SummaryCache on the summary_cache table.
type summaryCache struct {
	store *Store
	ttl   time.Duration
	size  int
}

var _ driven.SummaryCache = (*summaryCache)(nil)

// Get returns the cached text, or domain.ErrCacheMiss when the key is
// absent or its entry has expired.
func (c *summaryCache) Get(ctx context.Context, key string) (string, error) {
	var text, createdAt string
	err := c.store.db.QueryRowContext(ctx,
		"SELECT text, created_at FROM summary_cache WHERE key = ?", key).Scan(&text, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("querying summary cache: %w", err)
	}
	if c.ttl > 0 && c.store.now().Sub(parseTime(createdAt)) > c.ttl {
		return "", domain.ErrCacheMiss
	}
	return text, nil
}

// Put stores text under key, replacing any existing entry and resetting
// its age, then evicts the oldest entries beyond the size limit.
func (c *summaryCache) Put(ctx context.Context, key, text string) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO summary_cache (key, text, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			text = excluded.text,
			created_at = excluded.created_at
	`, key, text, formatTime(c.store.now()))
	if err != nil {
		return fmt.Errorf("saving summary cache entry: %w", err)
	}
	if _, err := c.evictOverflow(ctx); err != nil {
		return err
	}
	return nil
}

// Prune deletes expired entries and any beyond the size limit. Without a
// TTL nothing expires.
func (c *summaryCache) Prune(ctx context.Context) (int, error) {
	removed := 0
	if c.ttl > 0 {
		cutoff := formatTime(c.store.now().Add(-c.ttl))
		res, err := c.store.db.ExecContext(ctx, "DELETE FROM summary_cache WHERE created_at < ?", cutoff)
		if err != nil {
			return 0, fmt.Errorf("pruning summary cache: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return 0, err
		}
		removed += n
	}

	n, err := c.evictOverflow(ctx)
	if err != nil {
		return removed, err
	}
	return removed + n, nil
}

// evictOverflow keeps only the newest size entries.
func (c *summaryCache) evictOverflow(ctx context.Context) (int, error) {
	if c.size <= 0 {
		return 0, nil
	}
	res, err := c.store.db.ExecContext(ctx, `
		DELETE FROM summary_cache WHERE key IN (
			SELECT key FROM summary_cache
			ORDER BY created_at DESC, rowid DESC
			LIMIT -1 OFFSET ?
		)
	`, c.size)
	if err != nil {
		return 0, fmt.Errorf("evicting summary cache entries: %w", err)
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return int(n), nil
}

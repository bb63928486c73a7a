package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// getManyChunk keeps IN lists well under SQLite's bound-variable limit.
const getManyChunk = 500

var headlineColumns = []string{"id", "text", "source", "published_at", "url", "ingested_at"}

// headlineStore implements driven.HeadlineStore.
type headlineStore struct {
	store *Store
}

var _ driven.HeadlineStore = (*headlineStore)(nil)

// Insert stores new records in one transaction. Existing IDs, including
// repeats inside the batch, are counted as duplicates.
func (h *headlineStore) Insert(ctx context.Context, records []domain.HeadlineRecord) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	tx, err := h.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO headlines (id, text, source, published_at, url, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	inserted, duplicates := 0, 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, r.ID, r.Text, r.Source,
			formatTime(r.Timestamp), r.URL, formatTime(r.IngestedAt))
		if err != nil {
			return 0, 0, fmt.Errorf("inserting headline %s: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("reading rows affected: %w", err)
		}
		if n == 0 {
			duplicates++
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing transaction: %w", err)
	}
	return inserted, duplicates, nil
}

// LoadRecent returns up to maxCount records newest first, ties broken by
// ID. A non-positive maxCount or maxAge disables that limit.
func (h *headlineStore) LoadRecent(
	ctx context.Context,
	maxCount int,
	maxAge time.Duration,
) ([]domain.HeadlineRecord, error) {
	q := sq.Select(headlineColumns...).
		From("headlines").
		OrderBy("published_at DESC", "id ASC")
	if maxAge > 0 {
		q = q.Where(sq.GtOrEq{"published_at": formatTime(h.store.now().Add(-maxAge))})
	}
	if maxCount > 0 {
		q = q.Limit(uint64(maxCount))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := h.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying headlines: %w", err)
	}
	defer rows.Close()

	var records []domain.HeadlineRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanHeadline(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating headlines: %w", err)
	}
	return records, nil
}

// GetMany returns the records with the given IDs. Unknown IDs are omitted.
func (h *headlineStore) GetMany(ctx context.Context, ids []string) (map[string]domain.HeadlineRecord, error) {
	result := make(map[string]domain.HeadlineRecord, len(ids))
	for start := 0; start < len(ids); start += getManyChunk {
		end := min(start+getManyChunk, len(ids))
		query, args, err := sq.Select(headlineColumns...).
			From("headlines").
			Where(sq.Eq{"id": ids[start:end]}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("building query: %w", err)
		}
		if err := h.collect(ctx, query, args, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *headlineStore) collect(ctx context.Context, query string, args []any, into map[string]domain.HeadlineRecord) error {
	rows, err := h.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying headlines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanHeadline(rows)
		if err != nil {
			return err
		}
		into[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating headlines: %w", err)
	}
	return nil
}

// Count returns the total number of stored headlines.
func (h *headlineStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := h.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM headlines").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting headlines: %w", err)
	}
	return n, nil
}

func scanHeadline(rows *sql.Rows) (domain.HeadlineRecord, error) {
	var r domain.HeadlineRecord
	var publishedAt, ingestedAt string
	if err := rows.Scan(&r.ID, &r.Text, &r.Source, &publishedAt, &r.URL, &ingestedAt); err != nil {
		return r, fmt.Errorf("scanning headline: %w", err)
	}
	r.Timestamp = parseTime(publishedAt)
	r.IngestedAt = parseTime(ingestedAt)
	return r, nil
}

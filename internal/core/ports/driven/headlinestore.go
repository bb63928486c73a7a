package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// HeadlineStore persists headline records. It is append-only: records
// are never updated, and a record whose ID already exists is rejected.
type HeadlineStore interface {
	// Insert stores records whose IDs are not yet present and returns
	// how many were inserted and how many were duplicates.
	// Duplicates within the same batch count as duplicates too.
	Insert(ctx context.Context, records []domain.HeadlineRecord) (inserted, duplicates int, err error)

	// LoadRecent returns up to maxCount records, newest first. Records
	// older than now-maxAge are excluded unless maxAge is zero.
	LoadRecent(ctx context.Context, maxCount int, maxAge time.Duration) ([]domain.HeadlineRecord, error)

	// GetMany returns the records with the given IDs, keyed by ID.
	// Unknown IDs are omitted.
	GetMany(ctx context.Context, ids []string) (map[string]domain.HeadlineRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)
}

package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// HeadlineService accepts raw headlines into the headline store.
type HeadlineService interface {
	// Ingest normalises, deduplicates and stores raw headlines.
	// Duplicates are counted, not treated as errors.
	Ingest(ctx context.Context, raws []domain.RawHeadline) (domain.IngestResult, error)

	// IngestFrom fetches everything a source holds and ingests it.
	IngestFrom(ctx context.Context, source driven.HeadlineSource) (domain.IngestResult, error)

	// LoadRecent returns up to maxCount stored headlines no older than
	// maxAge, newest first.
	LoadRecent(ctx context.Context, maxCount int, maxAge time.Duration) ([]domain.HeadlineRecord, error)

	// Count returns the number of stored headlines.
	Count(ctx context.Context) (int, error)
}

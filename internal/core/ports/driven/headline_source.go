package driven

import (
	"context"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// HeadlineSource produces raw headlines for ingestion. Scrapers, feed
// readers and file importers all satisfy this interface.
type HeadlineSource interface {
	// Name identifies the source in logs.
	Name() string

	// Fetch returns every headline the source currently holds.
	Fetch(ctx context.Context) ([]domain.RawHeadline, error)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// Ensure HeadlineService implements the interface.
var _ driving.HeadlineService = (*HeadlineService)(nil)

// HeadlineService normalises, deduplicates and stores incoming headlines.
type HeadlineService struct {
	store      driven.HeadlineStore
	normaliser driven.TextNormaliser
	logger     *slog.Logger
	now        func() time.Time
}

// NewHeadlineService creates a headline service. normaliser may be nil,
// in which case only whitespace is collapsed.
func NewHeadlineService(store driven.HeadlineStore, normaliser driven.TextNormaliser) *HeadlineService {
	return &HeadlineService{
		store:      store,
		normaliser: normaliser,
		logger:     logger.With("headlines"),
		now:        time.Now,
	}
}

// Ingest normalises raw headlines and stores the ones not seen before.
// Records with no text after normalisation are counted as rejected.
func (s *HeadlineService) Ingest(ctx context.Context, raws []domain.RawHeadline) (domain.IngestResult, error) {
	var result domain.IngestResult
	if len(raws) == 0 {
		return result, nil
	}

	now := s.now().UTC()
	records := make([]domain.HeadlineRecord, 0, len(raws))
	for _, raw := range raws {
		text := s.normalise(raw.Text)
		if text == "" {
			result.Rejected++
			s.logger.WarnContext(ctx, "rejected headline with no text", "source", raw.Source, "url", raw.URL)
			continue
		}
		source := domain.CollapseWhitespace(raw.Source)
		ts := raw.Timestamp
		if ts.IsZero() {
			ts = now
		}
		records = append(records, domain.HeadlineRecord{
			ID:         domain.HeadlineID(text, source),
			Text:       text,
			Source:     source,
			Timestamp:  ts.UTC(),
			URL:        raw.URL,
			IngestedAt: now,
		})
	}

	inserted, duplicates, err := s.store.Insert(ctx, records)
	if err != nil {
		return result, asStorageError("insert headlines", err)
	}
	result.Accepted = inserted
	result.Duplicates = duplicates

	s.logger.InfoContext(ctx, "ingested headlines",
		"accepted", result.Accepted,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected)
	return result, nil
}

// IngestFrom fetches a source's headlines and ingests them.
func (s *HeadlineService) IngestFrom(ctx context.Context, source driven.HeadlineSource) (domain.IngestResult, error) {
	raws, err := source.Fetch(ctx)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("fetch %s: %w", source.Name(), err)
	}
	return s.Ingest(ctx, raws)
}

// LoadRecent returns up to maxCount stored headlines no older than maxAge,
// newest first.
func (s *HeadlineService) LoadRecent(ctx context.Context, maxCount int, maxAge time.Duration) ([]domain.HeadlineRecord, error) {
	records, err := s.store.LoadRecent(ctx, maxCount, maxAge)
	if err != nil {
		return nil, asStorageError("load recent headlines", err)
	}
	return records, nil
}

// Count returns the number of stored headlines.
func (s *HeadlineService) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, asStorageError("count headlines", err)
	}
	return n, nil
}

func (s *HeadlineService) normalise(text string) string {
	if s.normaliser != nil {
		text = s.normaliser.Normalise(text)
	}
	return domain.CollapseWhitespace(text)
}

// asStorageError wraps err as a StorageError unless it already is one.
func asStorageError(op string, err error) error {
	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return domain.NewStorageError(op, err)
}

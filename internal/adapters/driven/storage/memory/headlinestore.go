package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure HeadlineStore implements the interface.
var _ driven.HeadlineStore = (*HeadlineStore)(nil)

// HeadlineStore is an in-memory implementation of driven.HeadlineStore.
type HeadlineStore struct {
	mu        sync.RWMutex
	headlines map[string]domain.HeadlineRecord
	now       func() time.Time
}

// NewHeadlineStore creates a new in-memory headline store.
func NewHeadlineStore() *HeadlineStore {
	return &HeadlineStore{
		headlines: make(map[string]domain.HeadlineRecord),
		now:       time.Now,
	}
}

// Insert stores records whose ID is not already present. Repeats within
// the same batch count as duplicates too.
func (s *HeadlineStore) Insert(_ context.Context, records []domain.HeadlineRecord) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted, duplicates := 0, 0
	for _, r := range records {
		if _, exists := s.headlines[r.ID]; exists {
			duplicates++
			continue
		}
		s.headlines[r.ID] = r
		inserted++
	}
	return inserted, duplicates, nil
}

// LoadRecent returns up to maxCount records newer than maxAge, newest
// first. A non-positive maxCount or maxAge disables that limit.
func (s *HeadlineStore) LoadRecent(_ context.Context, maxCount int, maxAge time.Duration) ([]domain.HeadlineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = s.now().Add(-maxAge)
	}

	result := make([]domain.HeadlineRecord, 0, len(s.headlines))
	for _, r := range s.headlines {
		if !cutoff.IsZero() && r.Timestamp.Before(cutoff) {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})
	if maxCount > 0 && len(result) > maxCount {
		result = result[:maxCount]
	}
	return result, nil
}

// GetMany returns the stored records for ids. Unknown IDs are omitted.
func (s *HeadlineStore) GetMany(_ context.Context, ids []string) (map[string]domain.HeadlineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.HeadlineRecord, len(ids))
	for _, id := range ids {
		if r, ok := s.headlines[id]; ok {
			result[id] = r
		}
	}
	return result, nil
}

// Count returns the number of stored records.
func (s *HeadlineStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.headlines), nil
}

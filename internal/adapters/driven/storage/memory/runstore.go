package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
// Runs are stored as deep copies so callers cannot mutate saved state.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string][]byte),
	}
}

// SaveRun stores or replaces a run.
func (s *RunStore) SaveRun(_ context.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = data
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(_ context.Context, id string) (*domain.PipelineRun, error) {
	s.mu.RLock()
	data, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return decodeRun(data)
}

// LatestRun returns the most recently started run.
func (s *RunStore) LatestRun(ctx context.Context) (*domain.PipelineRun, error) {
	runs, err := s.ListRuns(ctx, domain.RunFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &runs[0], nil
}

// ListRuns returns matching runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, filter domain.RunFilter) ([]domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PipelineRun, 0, len(s.runs))
	for _, data := range s.runs {
		run, err := decodeRun(data)
		if err != nil {
			return nil, err
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && run.StartedAt.Before(filter.Since) {
			continue
		}
		result = append(result, *run)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].ID > result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func decodeRun(data []byte) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

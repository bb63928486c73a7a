package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

// Ensure RunService implements the interface.
var _ driving.RunService = (*RunService)(nil)

// RunService reads persisted runs for the CLI, HTTP API and MCP server.
type RunService struct {
	runs      driven.RunStore
	headlines driven.HeadlineStore
}

// NewRunService creates a new run service.
func NewRunService(runs driven.RunStore, headlines driven.HeadlineStore) *RunService {
	return &RunService{runs: runs, headlines: headlines}
}

// Latest returns the most recent run with the headlines it clustered.
func (s *RunService) Latest(ctx context.Context) (*driving.RunDetail, error) {
	run, err := s.runs.LatestRun(ctx)
	if err != nil {
		return nil, wrapRead("latest run", err)
	}
	return s.detail(ctx, run)
}

// Get returns a run by ID with the headlines it clustered.
func (s *RunService) Get(ctx context.Context, id string) (*driving.RunDetail, error) {
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, wrapRead("get run", err)
	}
	return s.detail(ctx, run)
}

// List returns run headers, newest first. Cluster and summary payloads
// are left to Get.
func (s *RunService) List(ctx context.Context, filter domain.RunFilter) ([]domain.PipelineRun, error) {
	runs, err := s.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, wrapRead("list runs", err)
	}
	return runs, nil
}

func (s *RunService) detail(ctx context.Context, run *domain.PipelineRun) (*driving.RunDetail, error) {
	var ids []string
	for _, c := range run.Clusters {
		ids = append(ids, c.MemberIDs...)
	}
	headlines := map[string]domain.HeadlineRecord{}
	if len(ids) > 0 {
		var err error
		headlines, err = s.headlines.GetMany(ctx, ids)
		if err != nil {
			return nil, asStorageError("load run headlines", err)
		}
	}
	return &driving.RunDetail{Run: run, Headlines: headlines}, nil
}

// wrapRead passes ErrNotFound through untouched and wraps everything else
// as a StorageError.
func wrapRead(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return asStorageError(op, err)
}

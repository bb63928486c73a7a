package driven

import (
	"context"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// RunStore persists finished pipeline runs.
type RunStore interface {
	// SaveRun atomically stores the run together with its cluster
	// summaries, executive summary and model state. Readers never observe
	// a partially written run.
	SaveRun(ctx context.Context, run *domain.PipelineRun) error

	// GetRun returns a run by ID, or domain.ErrNotFound.
	GetRun(ctx context.Context, id string) (*domain.PipelineRun, error)

	// LatestRun returns the most recently started run, or domain.ErrNotFound.
	LatestRun(ctx context.Context) (*domain.PipelineRun, error)

	// ListRuns returns runs newest first. Listed runs carry no clusters,
	// summaries or model state; use GetRun for the full record.
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.PipelineRun, error)
}

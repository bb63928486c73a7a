package driving

import (
	"context"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// RunDetail is a run together with the headlines its clusters reference.
type RunDetail struct {
	Run       *domain.PipelineRun
	Headlines map[string]domain.HeadlineRecord
}

// RunService reads persisted pipeline runs.
type RunService interface {
	// Latest returns the most recent run with its headlines.
	Latest(ctx context.Context) (*RunDetail, error)

	// Get returns a run by ID with its headlines.
	Get(ctx context.Context, id string) (*RunDetail, error)

	// List returns run headers, newest first.
	List(ctx context.Context, filter domain.RunFilter) ([]domain.PipelineRun, error)
}

package driving

import (
	"context"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// PipelineRunner is the single trigger for a clustering-and-summarization run.
type PipelineRunner interface {
	// RunNow executes one run and returns its persisted record.
	//
	// A PartiallyFailed run is returned with a nil error; callers should
	// treat it as success with warnings. A Failed run is returned together
	// with an error describing the fatal cause. If another run is active,
	// RunNow returns domain.ErrRunInProgress without starting a run.
	RunNow(ctx context.Context) (*domain.PipelineRun, error)

	// State returns the state of the active run, or Idle.
	State() domain.RunState

	// Active reports whether a run is in progress.
	Active() bool
}

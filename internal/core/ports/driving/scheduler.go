package driving

import (
	"context"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// Scheduler triggers pipeline runs and cache maintenance on an interval.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// History returns a task's most recent results, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}

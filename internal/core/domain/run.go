package domain

import (
	"fmt"
	"time"
)

// RunState is a pipeline run's position in the state machine.
type RunState string

// Pipeline states. Transitions are strictly sequential, and any
// non-terminal state may move directly to Failed.
const (
	RunStateIdle            RunState = "idle"
	RunStateIngesting       RunState = "ingesting"
	RunStateEmbedding       RunState = "embedding"
	RunStateClustering      RunState = "clustering"
	RunStateSummarizing     RunState = "summarizing"
	RunStateFinalizing      RunState = "finalizing"
	RunStateCompleted       RunState = "completed"
	RunStatePartiallyFailed RunState = "partially_failed"
	RunStateFailed          RunState = "failed"
)

var nextRunState = map[RunState]RunState{
	RunStateIdle:        RunStateIngesting,
	RunStateIngesting:   RunStateEmbedding,
	RunStateEmbedding:   RunStateClustering,
	RunStateClustering:  RunStateSummarizing,
	RunStateSummarizing: RunStateFinalizing,
}

// String returns the state name.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal reports whether the state ends a run.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStatePartiallyFailed, RunStateFailed:
		return true
	default:
		return false
	}
}

// IsActive reports whether a run in this state is still in progress.
func (s RunState) IsActive() bool {
	return s != RunStateIdle && !s.IsTerminal()
}

// CanTransition reports whether moving from s to next is allowed.
func (s RunState) CanTransition(next RunState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == RunStateFailed {
		return s != RunStateIdle
	}
	if s == RunStateFinalizing {
		return next == RunStateCompleted || next == RunStatePartiallyFailed
	}
	return nextRunState[s] == next
}

// ParseRunState converts a stored state name back into a RunState.
func ParseRunState(s string) (RunState, error) {
	switch st := RunState(s); st {
	case RunStateIdle, RunStateIngesting, RunStateEmbedding, RunStateClustering,
		RunStateSummarizing, RunStateFinalizing, RunStateCompleted,
		RunStatePartiallyFailed, RunStateFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown run state %q", ErrInvalidInput, s)
}

// PipelineRun is the outcome of one orchestrator invocation.
type PipelineRun struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	RequestedK    int       `json:"requested_k"`
	KUsed         int       `json:"k_used"`
	HeadlineCount int       `json:"headline_count"`
	Status        RunState  `json:"status"`

	// Error holds the fatal cause when Status is Failed.
	Error string `json:"error,omitempty"`

	// Warnings accumulates recoverable failures (skipped headlines,
	// unavailable cluster summaries).
	Warnings []string `json:"warnings,omitempty"`

	Clusters  []Cluster         `json:"clusters,omitempty"`
	Summaries []ClusterSummary  `json:"summaries,omitempty"`
	Executive *ExecutiveSummary `json:"executive,omitempty"`
	Model     *ModelState       `json:"model,omitempty"`
	Sentiment Sentiment         `json:"sentiment"`
}

// Succeeded reports whether the run should be treated as a success.
// PartiallyFailed counts as success with warnings.
func (r *PipelineRun) Succeeded() bool {
	return r.Status == RunStateCompleted || r.Status == RunStatePartiallyFailed
}

// Duration returns how long the run took, or zero if unfinished.
func (r *PipelineRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Warn appends a formatted warning to the run.
func (r *PipelineRun) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// SummaryFor returns the summary for a cluster, if one was produced.
func (r *PipelineRun) SummaryFor(clusterID int) (ClusterSummary, bool) {
	for _, s := range r.Summaries {
		if s.ClusterID == clusterID {
			return s, true
		}
	}
	return ClusterSummary{}, false
}

// RunFilter narrows a run listing.
type RunFilter struct {
	// Status restricts results to one state when non-empty.
	Status RunState

	// Since restricts results to runs started at or after this time.
	Since time.Time

	// Limit caps the number of runs returned; zero means no cap.
	Limit int
}

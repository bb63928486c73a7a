// Package scheduler triggers pipeline runs and cache maintenance on an
// interval. It sits outside the core: the pipeline only exposes RunNow and
// has no notion of wall-clock time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	defaultTick   = time.Minute
	historyToKeep = 100
)

var taskNames = map[string]string{
	domain.TaskIDPipelineRun: "Pipeline Run",
	domain.TaskIDCachePrune:  "Summary Cache Prune",
}

// Scheduler runs due tasks from a persisted task table.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	runner driving.PipelineRunner
	cache  driven.SummaryCache
	logger *slog.Logger
	tick   time.Duration
	now    func() time.Time

	mu       sync.Mutex
	running  bool
	inflight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler. cache may be nil, in which case the prune task
// is a no-op.
func New(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	runner driving.PipelineRunner,
	cache driven.SummaryCache,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		runner:   runner,
		cache:    cache,
		logger:   logger.With("scheduler"),
		tick:     defaultTick,
		now:      time.Now,
		inflight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.InfoContext(ctx, "scheduler disabled")
	} else if err := s.initialiseTasks(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to initialise tasks", "error", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// History returns recorded results for taskID, newest first.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if _, known := taskNames[taskID]; !known {
		return nil, fmt.Errorf("%w: unknown task %q", domain.ErrInvalidInput, taskID)
	}
	return s.store.GetTaskHistory(ctx, taskID, limit)
}

// initialiseTasks ensures every known task exists in the store with its
// configured interval and enabled flag.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDPipelineRun, domain.TaskIDCachePrune} {
		if err := s.ensureTask(ctx, id, taskNames[id], s.config.GetTaskConfig(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  now.Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = now.Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context) error {
	if s.config.Enabled {
		s.checkAndRunDueTasks(ctx)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if s.config.Enabled {
				s.checkAndRunDueTasks(ctx)
			}
		}
	}
}

// checkAndRunDueTasks starts every enabled task whose NextRun has passed
// and which is not already running.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list tasks", "error", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background and records its result.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inflight[task.ID] {
		s.mu.Unlock()
		return
	}
	s.inflight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDPipelineRun:
			err = s.runPipeline(ctx, result)
		case domain.TaskIDCachePrune:
			result.ItemsProcessed, err = s.pruneCache(ctx)
		default:
			s.logger.WarnContext(ctx, "unknown task ID", "task_id", task.ID)
			return
		}

		result.EndedAt = s.now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			s.logger.WarnContext(ctx, "task failed", "task_id", task.ID, "error", err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		// Task state is saved even if ctx was cancelled mid-run.
		storeCtx := context.WithoutCancel(ctx)
		if saveErr := s.store.SaveTask(storeCtx, task); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to save task", "task_id", task.ID, "error", saveErr)
		}
		if recordErr := s.store.RecordResult(storeCtx, result); recordErr != nil {
			s.logger.ErrorContext(ctx, "failed to record result", "task_id", task.ID, "error", recordErr)
		}
		if pruneErr := s.store.PruneHistory(storeCtx, historyToKeep); pruneErr != nil {
			s.logger.ErrorContext(ctx, "failed to prune history", "error", pruneErr)
		}
	}()
}

// runPipeline triggers one run. PartiallyFailed counts as success; a run
// refused because another is active is reported as a failed attempt.
func (s *Scheduler) runPipeline(ctx context.Context, result *domain.TaskResult) error {
	if s.runner == nil {
		return nil
	}
	run, err := s.runner.RunNow(ctx)
	if run != nil {
		result.RunID = run.ID
		result.ItemsProcessed = run.HeadlineCount
	}
	if errors.Is(err, domain.ErrRunInProgress) {
		s.logger.InfoContext(ctx, "pipeline already running, skipping scheduled run")
	}
	return err
}

func (s *Scheduler) pruneCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Prune(ctx)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

var taskColumns = []string{
	"id", "name", "interval_seconds", "last_run", "next_run", "last_error", "last_success", "enabled",
}

// historyColumns reads a task result together with the status of the
// pipeline run it produced, when that run is still stored.
var historyColumns = []string{
	"t.task_id", "t.started_at", "t.ended_at", "t.success", "t.error",
	"t.items_processed", "t.run_id", "r.status",
}

// schedulerStore keeps scheduled task state and a per-task run history.
// Pipeline task results point at the pipeline_runs row they produced.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask returns nil and no error when the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	query, args, err := sq.Select(taskColumns...).From("scheduled_tasks").Where(sq.Eq{"id": taskID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	task, err := scanTask(s.store.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	query, args, err := sq.Select(taskColumns...).From("scheduled_tasks").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask upserts the task by ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	query, args, err := sq.Insert("scheduled_tasks").
		Columns(taskColumns...).
		Values(task.ID, task.Name, int64(task.Interval.Seconds()),
			formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
			nullString(task.LastError), formatNullableTime(task.LastSuccess),
			boolToInt(task.Enabled)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if _, err := s.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	query, args, err := sq.Delete("scheduled_tasks").Where(sq.Eq{"id": taskID}).ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if _, err := s.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting scheduled task: %w", err)
	}
	return nil
}

// RecordResult appends one execution to the task's history.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	query, args, err := sq.Insert("task_results").
		Columns("task_id", "started_at", "ended_at", "success", "error", "items_processed", "run_id").
		Values(result.TaskID, formatTime(result.StartedAt), formatTime(result.EndedAt),
			boolToInt(result.Success), nullString(result.Error), result.ItemsProcessed,
			nullString(result.RunID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if _, err := s.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// GetTaskHistory returns the newest results first. Results linked to a
// stored pipeline run carry that run's final status.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	q := sq.Select(historyColumns...).
		From("task_results t").
		LeftJoin("pipeline_runs r ON r.id = t.run_id").
		Where(sq.Eq{"t.task_id": taskID}).
		OrderBy("t.started_at DESC", "t.id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	defer rows.Close()

	var results []domain.TaskResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanTaskResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task history: %w", err)
	}
	return results, nil
}

// PruneHistory keeps the newest keep results of each task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var intervalSeconds int64
	var lastRun, nextRun, lastError, lastSuccess sql.NullString
	var enabled int

	if err := row.Scan(&task.ID, &task.Name, &intervalSeconds,
		&lastRun, &nextRun, &lastError, &lastSuccess, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastError = lastError.String
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.Enabled = enabled == 1
	return &task, nil
}

func scanTaskResult(row rowScanner) (*domain.TaskResult, error) {
	var result domain.TaskResult
	var startedAt, endedAt string
	var success int
	var errMsg, runID, runStatus sql.NullString

	if err := row.Scan(&result.TaskID, &startedAt, &endedAt,
		&success, &errMsg, &result.ItemsProcessed, &runID, &runStatus); err != nil {
		return nil, fmt.Errorf("scanning task result: %w", err)
	}

	result.StartedAt = parseTime(startedAt)
	result.EndedAt = parseTime(endedAt)
	result.Success = success == 1
	result.Error = errMsg.String
	result.RunID = runID.String
	result.RunStatus = domain.RunState(runStatus.String)
	return &result, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

var runColumns = []string{
	"id", "started_at", "finished_at", "requested_k", "k_used", "headline_count",
	"status", "error", "warnings_json", "sentiment_json", "model_json",
}

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun writes the run row, its clusters, cluster summaries and
// executive summary in one transaction. Saving an existing run ID
// replaces all of its artifacts.
func (r *runStore) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run must have an ID", domain.ErrInvalidInput)
	}

	warningsJSON, err := json.Marshal(nonNilStrings(run.Warnings))
	if err != nil {
		return fmt.Errorf("marshaling warnings: %w", err)
	}
	sentimentJSON, err := json.Marshal(run.Sentiment)
	if err != nil {
		return fmt.Errorf("marshaling sentiment: %w", err)
	}
	var modelJSON any
	if run.Model != nil {
		data, err := json.Marshal(run.Model)
		if err != nil {
			return fmt.Errorf("marshaling model state: %w", err)
		}
		modelJSON = string(data)
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, started_at, finished_at, requested_k, k_used, headline_count,
			status, error, warnings_json, sentiment_json, model_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			requested_k = excluded.requested_k,
			k_used = excluded.k_used,
			headline_count = excluded.headline_count,
			status = excluded.status,
			error = excluded.error,
			warnings_json = excluded.warnings_json,
			sentiment_json = excluded.sentiment_json,
			model_json = excluded.model_json
	`, run.ID, formatTime(run.StartedAt), formatNullableTime(run.FinishedAt),
		run.RequestedK, run.KUsed, run.HeadlineCount, string(run.Status),
		nullString(run.Error), string(warningsJSON), string(sentimentJSON), modelJSON)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	for _, table := range []string{"run_clusters", "cluster_summaries", "executive_summaries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", run.ID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err := insertClusters(ctx, tx, run.ID, run.Clusters); err != nil {
		return err
	}
	if err := insertSummaries(ctx, tx, run.ID, run.Summaries); err != nil {
		return err
	}
	if exec := run.Executive; exec != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO executive_summaries (run_id, summary_text, generated_at,
				source_cluster_count, omitted_cluster_count)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, exec.SummaryText, formatTime(exec.GeneratedAt),
			exec.SourceClusterCount, exec.OmittedClusterCount)
		if err != nil {
			return fmt.Errorf("saving executive summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertClusters(ctx context.Context, tx *sql.Tx, runID string, clusters []domain.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_clusters (run_id, cluster_id, representative_id, member_ids_json, centroid, analysis_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing cluster statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range clusters {
		membersJSON, err := json.Marshal(nonNilStrings(c.MemberIDs))
		if err != nil {
			return fmt.Errorf("marshaling members of cluster %d: %w", c.ID, err)
		}
		analysisJSON, err := json.Marshal(c.Analysis)
		if err != nil {
			return fmt.Errorf("marshaling analysis of cluster %d: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, c.ID, c.RepresentativeID,
			string(membersJSON), float32SliceToBytes(c.Centroid), string(analysisJSON)); err != nil {
			return fmt.Errorf("saving cluster %d: %w", c.ID, err)
		}
	}
	return nil
}

func insertSummaries(ctx context.Context, tx *sql.Tx, runID string, summaries []domain.ClusterSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cluster_summaries (run_id, cluster_id, summary_text, headline_count,
			representative_id, generated_at, cached)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing summary statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		if _, err := stmt.ExecContext(ctx, runID, s.ClusterID, s.SummaryText, s.HeadlineCount,
			s.RepresentativeID, formatTime(s.GeneratedAt), boolToInt(s.Cached)); err != nil {
			return fmt.Errorf("saving summary for cluster %d: %w", s.ClusterID, err)
		}
	}
	return nil
}

// GetRun returns a run with all of its artifacts, or domain.ErrNotFound.
func (r *runStore) GetRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	query, args, err := sq.Select(runColumns...).From("pipeline_runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	run, err := scanRun(r.store.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := r.loadArtifacts(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the most recently started run, or domain.ErrNotFound.
func (r *runStore) LatestRun(ctx context.Context) (*domain.PipelineRun, error) {
	var id string
	err := r.store.db.QueryRowContext(ctx,
		"SELECT id FROM pipeline_runs ORDER BY started_at DESC, id DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return r.GetRun(ctx, id)
}

// ListRuns returns run headers newest first.
func (r *runStore) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.PipelineRun, error) {
	q := sq.Select(runColumns...).From("pipeline_runs").OrderBy("started_at DESC", "id DESC")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	if !filter.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"started_at": formatTime(filter.Since)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.PipelineRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		run.Model = nil
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// loadArtifacts fills clusters, summaries and the executive summary.
func (r *runStore) loadArtifacts(ctx context.Context, run *domain.PipelineRun) error {
	clusters, err := r.loadClusters(ctx, run.ID)
	if err != nil {
		return err
	}
	run.Clusters = clusters

	summaries, err := r.loadSummaries(ctx, run.ID)
	if err != nil {
		return err
	}
	run.Summaries = summaries

	var exec domain.ExecutiveSummary
	var generatedAt string
	err = r.store.db.QueryRowContext(ctx, `
		SELECT summary_text, generated_at, source_cluster_count, omitted_cluster_count
		FROM executive_summaries WHERE run_id = ?
	`, run.ID).Scan(&exec.SummaryText, &generatedAt, &exec.SourceClusterCount, &exec.OmittedClusterCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("querying executive summary: %w", err)
	default:
		exec.RunID = run.ID
		exec.GeneratedAt = parseTime(generatedAt)
		run.Executive = &exec
	}
	return nil
}

func (r *runStore) loadClusters(ctx context.Context, runID string) ([]domain.Cluster, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT cluster_id, representative_id, member_ids_json, centroid, analysis_json
		FROM run_clusters WHERE run_id = ? ORDER BY cluster_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying clusters: %w", err)
	}
	defer rows.Close()

	var clusters []domain.Cluster //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Cluster
		var membersJSON, analysisJSON string
		var centroid []byte
		if err := rows.Scan(&c.ID, &c.RepresentativeID, &membersJSON, &centroid, &analysisJSON); err != nil {
			return nil, fmt.Errorf("scanning cluster: %w", err)
		}
		if err := json.Unmarshal([]byte(membersJSON), &c.MemberIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling members of cluster %d: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(analysisJSON), &c.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshaling analysis of cluster %d: %w", c.ID, err)
		}
		c.Centroid = bytesToFloat32Slice(centroid)
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clusters: %w", err)
	}
	return clusters, nil
}

func (r *runStore) loadSummaries(ctx context.Context, runID string) ([]domain.ClusterSummary, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT cluster_id, summary_text, headline_count, representative_id, generated_at, cached
		FROM cluster_summaries WHERE run_id = ? ORDER BY cluster_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ClusterSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		s := domain.ClusterSummary{RunID: runID}
		var generatedAt string
		var cached int
		if err := rows.Scan(&s.ClusterID, &s.SummaryText, &s.HeadlineCount,
			&s.RepresentativeID, &generatedAt, &cached); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		s.GeneratedAt = parseTime(generatedAt)
		s.Cached = cached == 1
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}
	return summaries, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var startedAt, status, warningsJSON, sentimentJSON string
	var finishedAt, errMsg, modelJSON sql.NullString

	if err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.RequestedK, &run.KUsed,
		&run.HeadlineCount, &status, &errMsg, &warningsJSON, &sentimentJSON, &modelJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	state, err := domain.ParseRunState(status)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.Status = state
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}

	if err := json.Unmarshal([]byte(warningsJSON), &run.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshaling warnings: %w", err)
	}
	if len(run.Warnings) == 0 {
		run.Warnings = nil
	}
	if err := json.Unmarshal([]byte(sentimentJSON), &run.Sentiment); err != nil {
		return nil, fmt.Errorf("unmarshaling sentiment: %w", err)
	}
	if modelJSON.Valid && modelJSON.String != "" && modelJSON.String != jsonNull {
		var model domain.ModelState
		if err := json.Unmarshal([]byte(modelJSON.String), &model); err != nil {
			return nil, fmt.Errorf("unmarshaling model state: %w", err)
		}
		run.Model = &model
	}
	return &run, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineRunner = (*Pipeline)(nil)

// Pipeline orchestrates one clustering-and-summarization run:
// ingest, embed, cluster, summarise, then persist the run atomically.
// At most one run is active at a time.
type Pipeline struct {
	headlines  driven.HeadlineStore
	runs       driven.RunStore
	ingest     *HeadlineService
	sources    []driven.HeadlineSource
	embedder   *Embedder
	engine     *ClusterEngine
	summarizer *SummarizerGateway
	settings   domain.PipelineSettings
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu     sync.Mutex
	active bool
	state  domain.RunState
}

// PipelineDeps groups the collaborators a Pipeline needs.
type PipelineDeps struct {
	Headlines  driven.HeadlineStore
	Runs       driven.RunStore
	Ingest     *HeadlineService
	Sources    []driven.HeadlineSource
	Embedder   *Embedder
	Engine     *ClusterEngine
	Summarizer *SummarizerGateway
}

// NewPipeline creates a pipeline orchestrator.
func NewPipeline(deps PipelineDeps, settings domain.PipelineSettings) *Pipeline {
	return &Pipeline{
		headlines:  deps.Headlines,
		runs:       deps.Runs,
		ingest:     deps.Ingest,
		sources:    deps.Sources,
		embedder:   deps.Embedder,
		engine:     deps.Engine,
		summarizer: deps.Summarizer,
		settings:   settings,
		logger:     logger.With("pipeline"),
		now:        time.Now,
		newID:      newRunID,
		state:      domain.RunStateIdle,
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// State returns the active run's state, or Idle.
func (p *Pipeline) State() domain.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Active reports whether a run is in progress.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// RunNow executes one pipeline run. See driving.PipelineRunner.
func (p *Pipeline) RunNow(ctx context.Context) (*domain.PipelineRun, error) {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}
	p.active = true
	p.state = domain.RunStateIdle
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active = false
		p.state = domain.RunStateIdle
		p.mu.Unlock()
	}()

	run := &domain.PipelineRun{
		ID:         p.newID(),
		StartedAt:  p.now().UTC(),
		RequestedK: p.settings.KClusters,
		Status:     domain.RunStateIdle,
	}
	log := p.logger.With("run_id", run.ID)
	log.InfoContext(ctx, "pipeline run started", "k", run.RequestedK)

	cause := p.execute(ctx, run, log)
	if cause != nil {
		p.fail(run, cause, log)
	} else {
		p.finish(run, log)
	}

	if err := p.persist(ctx, run); err != nil {
		log.ErrorContext(ctx, "persisting run failed", "error", err)
		if cause == nil {
			p.fail(run, err, log)
		}
		return run, fmt.Errorf("pipeline run %s failed: %w", run.ID, err)
	}

	if cause != nil {
		return run, fmt.Errorf("pipeline run %s failed: %w", run.ID, cause)
	}
	log.InfoContext(ctx, "pipeline run finished",
		"status", run.Status,
		"clusters", run.KUsed,
		"headlines", run.HeadlineCount,
		"warnings", len(run.Warnings),
		"duration", run.Duration())
	return run, nil
}

// execute walks the run through every non-terminal state. Panics in any
// step are converted into an error so the run still ends as Failed.
func (p *Pipeline) execute(ctx context.Context, run *domain.PipelineRun, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected fault in %s step: %v", run.Status, r)
		}
	}()

	// Ingesting
	if err := p.advance(ctx, run, domain.RunStateIngesting, log); err != nil {
		return err
	}
	records, err := p.stepIngest(ctx, run, log)
	if err != nil {
		return err
	}

	// Embedding
	if err := p.advance(ctx, run, domain.RunStateEmbedding, log); err != nil {
		return err
	}
	points, err := p.stepEmbed(ctx, run, records)
	if err != nil {
		return err
	}

	// Clustering
	if err := p.advance(ctx, run, domain.RunStateClustering, log); err != nil {
		return err
	}
	texts, err := p.stepCluster(run, records, points)
	if err != nil {
		return err
	}

	// Summarizing
	if err := p.advance(ctx, run, domain.RunStateSummarizing, log); err != nil {
		return err
	}
	p.stepSummarize(ctx, run, texts, log)

	// Finalizing
	return p.advance(ctx, run, domain.RunStateFinalizing, log)
}

// advance checks for cancellation at the step boundary, then moves the
// run to next.
func (p *Pipeline) advance(ctx context.Context, run *domain.PipelineRun, next domain.RunState, log *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", next, err)
	}
	if !run.Status.CanTransition(next) {
		return fmt.Errorf("invalid state transition %s -> %s", run.Status, next)
	}
	run.Status = next
	p.mu.Lock()
	p.state = next
	p.mu.Unlock()
	log.DebugContext(ctx, "state change", "state", next)
	return nil
}

// stepIngest pulls configured sources into the headline store and loads
// the batch to cluster.
func (p *Pipeline) stepIngest(ctx context.Context, run *domain.PipelineRun, log *slog.Logger) ([]domain.HeadlineRecord, error) {
	for _, src := range p.sources {
		res, err := p.ingest.IngestFrom(ctx, src)
		if err != nil {
			var storageErr *domain.StorageError
			if errors.As(err, &storageErr) {
				return nil, err
			}
			run.Warn("source %s skipped: %v", src.Name(), err)
			log.WarnContext(ctx, "headline source failed", "source", src.Name(), "error", err)
			continue
		}
		log.DebugContext(ctx, "ingested source", "source", src.Name(),
			"accepted", res.Accepted, "duplicates", res.Duplicates)
	}

	records, err := p.headlines.LoadRecent(ctx, p.settings.MaxHeadlinesPerRun, p.settings.MaxAge)
	if err != nil {
		return nil, asStorageError("load recent headlines", err)
	}
	return records, nil
}

func (p *Pipeline) stepEmbed(
	ctx context.Context,
	run *domain.PipelineRun,
	records []domain.HeadlineRecord,
) ([]domain.ClusterPoint, error) {
	points, failures := p.embedder.EmbedHeadlines(ctx, records)
	for _, f := range failures {
		run.Warn("%v", f)
	}
	if len(records) > 0 && len(points) == 0 {
		return nil, fmt.Errorf("%w: all %d headlines failed to embed", domain.ErrEmbeddingUnavailable, len(records))
	}
	run.HeadlineCount = len(points)
	return points, nil
}

// stepCluster clusters the points, annotates each cluster and returns the
// headline text by ID for summarisation.
func (p *Pipeline) stepCluster(
	run *domain.PipelineRun,
	records []domain.HeadlineRecord,
	points []domain.ClusterPoint,
) (map[string]string, error) {
	clusters, model, err := p.engine.Cluster(points, p.settings.KClusters)
	if err != nil {
		return nil, err
	}
	model.EmbeddingModel = p.embedder.ModelName()
	run.KUsed = model.K
	run.Model = model
	if run.KUsed < run.RequestedK && run.HeadlineCount > 0 {
		run.Warn("cluster count clamped from %d to %d distinct headlines", run.RequestedK, run.KUsed)
	}

	texts := make(map[string]string, len(records))
	for _, r := range records {
		texts[r.ID] = r.Text
	}

	all := make([]string, 0, len(points))
	for i := range clusters {
		members := memberTexts(clusters[i], texts)
		clusters[i].Analysis = AnalyzeCluster(members)
		all = append(all, members...)
	}
	run.Clusters = clusters
	run.Sentiment = TallySentiment(all)
	return texts, nil
}

// stepSummarize generates cluster summaries and the executive summary.
// Failures are recorded as warnings; they never abort the run.
func (p *Pipeline) stepSummarize(ctx context.Context, run *domain.PipelineRun, texts map[string]string, log *slog.Logger) {
	if len(run.Clusters) == 0 {
		run.Warn("no headlines available to cluster")
		return
	}

	inputs := make([]ClusterInput, len(run.Clusters))
	for i, c := range run.Clusters {
		inputs[i] = ClusterInput{
			ClusterID:      c.ID,
			Headlines:      memberTexts(c, texts),
			Representative: texts[c.RepresentativeID],
		}
	}

	outcomes := p.summarizer.SummarizeAll(ctx, inputs)
	omitted := 0
	for i, out := range outcomes {
		c := run.Clusters[i]
		if out.Err != nil {
			omitted++
			run.Warn("cluster %d summary unavailable: %v", c.ID, out.Err)
			log.WarnContext(ctx, "cluster summary unavailable", "cluster_id", c.ID, "error", out.Err)
			continue
		}
		s := out.Summary
		s.RunID = run.ID
		s.RepresentativeID = c.RepresentativeID
		run.Summaries = append(run.Summaries, s)
	}

	if len(run.Summaries) == 0 {
		run.Warn("executive summary skipped: no cluster summaries available")
		return
	}
	if ctx.Err() != nil {
		return
	}

	exec, err := p.summarizer.SummarizeExecutive(context.WithoutCancel(ctx), run.Summaries, omitted)
	if err != nil {
		run.Warn("executive summary unavailable: %v", err)
		log.WarnContext(ctx, "executive summary unavailable", "error", err)
		return
	}
	exec.RunID = run.ID
	run.Executive = &exec
}

// finish decides between Completed and PartiallyFailed.
func (p *Pipeline) finish(run *domain.PipelineRun, log *slog.Logger) {
	next := domain.RunStatePartiallyFailed
	if len(run.Clusters) > 0 && len(run.Summaries) == len(run.Clusters) && run.Executive != nil {
		next = domain.RunStateCompleted
	}
	if !run.Status.CanTransition(next) {
		p.fail(run, fmt.Errorf("invalid state transition %s -> %s", run.Status, next), log)
		return
	}
	run.Status = next
	run.FinishedAt = p.now().UTC()
}

// fail moves the run to Failed, keeping the cause for diagnostics.
func (p *Pipeline) fail(run *domain.PipelineRun, cause error, log *slog.Logger) {
	run.Status = domain.RunStateFailed
	run.Error = cause.Error()
	run.FinishedAt = p.now().UTC()
	log.Error("pipeline run failed", "error", cause)
}

// persist stores the run. Failed runs are stored without their partial
// artifacts; the in-memory run keeps them for the caller to inspect.
func (p *Pipeline) persist(ctx context.Context, run *domain.PipelineRun) error {
	record := *run
	if run.Status == domain.RunStateFailed {
		record.Clusters = nil
		record.Summaries = nil
		record.Executive = nil
		record.Model = nil
	}
	if err := p.runs.SaveRun(context.WithoutCancel(ctx), &record); err != nil {
		return asStorageError("save run", err)
	}
	return nil
}

func memberTexts(c domain.Cluster, texts map[string]string) []string {
	out := make([]string, 0, len(c.MemberIDs))
	for _, id := range c.MemberIDs {
		out = append(out, texts[id])
	}
	return out
}

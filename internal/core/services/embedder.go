package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// EmbedResult is the outcome of embedding one text: a unit-length vector,
// or an *domain.EmbeddingError.
type EmbedResult struct {
	Vector []float32
	Err    error
}

// Embedder turns headline text into unit-length vectors. Texts are sent to
// the embedding service in batches, with a bounded number of batches in
// flight. Results always line up with the input order.
type Embedder struct {
	svc         driven.EmbeddingService
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// NewEmbedder wraps an embedding service with batching and per-item
// failure isolation.
func NewEmbedder(svc driven.EmbeddingService, settings domain.EmbeddingSettings) *Embedder {
	batchSize := settings.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	concurrency := settings.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Embedder{
		svc:         svc,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger.With("embedder"),
	}
}

// ModelName returns the underlying embedding model name.
func (e *Embedder) ModelName() string {
	return e.svc.ModelName()
}

// Embed returns one result per text, in input order. A failed batch is
// retried item by item so one bad text cannot sink its neighbours. A panic
// in the embedding service is raised again on the caller's goroutine.
func (e *Embedder) Embed(ctx context.Context, texts []string) []EmbedResult {
	results := make([]EmbedResult, len(texts))

	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if domain.CollapseWhitespace(text) == "" {
			results[i].Err = domain.NewEmbeddingError("", domain.ErrEmptyText)
			continue
		}
		pending = append(pending, i)
	}

	var (
		g     errgroup.Group
		fault workerFault
	)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(pending); start += e.batchSize {
		end := min(start+e.batchSize, len(pending))
		batch := pending[start:end]
		g.Go(func() error {
			defer fault.capture()
			e.embedBatch(ctx, texts, batch, results)
			return nil
		})
	}
	_ = g.Wait()
	fault.rethrow()

	return results
}

// embedBatch fills results for the given indices. Each goroutine writes
// only its own indices.
func (e *Embedder) embedBatch(ctx context.Context, texts []string, indices []int, results []EmbedResult) {
	if err := ctx.Err(); err != nil {
		for _, idx := range indices {
			results[idx].Err = domain.NewEmbeddingError("", err)
		}
		return
	}

	batchTexts := make([]string, len(indices))
	for i, idx := range indices {
		batchTexts[i] = texts[idx]
	}

	vectors, err := e.svc.EmbedBatch(ctx, batchTexts)
	if err == nil && len(vectors) == len(indices) {
		for i, idx := range indices {
			results[idx] = checkVector(vectors[i])
		}
		return
	}
	if err == nil {
		err = fmt.Errorf("expected %d vectors, got %d", len(indices), len(vectors))
	}
	e.logger.WarnContext(ctx, "batch embedding failed, retrying items individually",
		"batch_size", len(indices), "error", err)

	for _, idx := range indices {
		vec, itemErr := e.svc.Embed(ctx, texts[idx])
		if itemErr != nil {
			results[idx].Err = domain.NewEmbeddingError("", itemErr)
			continue
		}
		results[idx] = checkVector(vec)
	}
}

// EmbedHeadlines embeds records and pairs each success with its record.
// Failed records are dropped and reported as EmbeddingErrors carrying the
// headline ID. Vectors whose dimension differs from the first success are
// kept so clustering can reject the batch as malformed.
func (e *Embedder) EmbedHeadlines(
	ctx context.Context,
	records []domain.HeadlineRecord,
) ([]domain.ClusterPoint, []error) {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	results := e.Embed(ctx, texts)

	points := make([]domain.ClusterPoint, 0, len(records))
	var failures []error
	for i, res := range results {
		if res.Err != nil {
			embedErr := domain.NewEmbeddingError(records[i].ID, unwrapEmbedding(res.Err))
			e.logger.WarnContext(ctx, "skipping headline", "headline_id", records[i].ID, "error", embedErr.Err)
			failures = append(failures, embedErr)
			continue
		}
		points = append(points, domain.ClusterPoint{
			ID:        records[i].ID,
			Timestamp: records[i].Timestamp,
			Vector:    res.Vector,
		})
	}
	return points, failures
}

// checkVector normalises a returned vector or reports it as unusable.
func checkVector(v []float32) EmbedResult {
	if len(v) == 0 {
		return EmbedResult{Err: domain.NewEmbeddingError("", fmt.Errorf("empty vector"))}
	}
	unit, ok := normalize(v)
	if !ok {
		return EmbedResult{Err: domain.NewEmbeddingError("", fmt.Errorf("zero or non-finite vector"))}
	}
	return EmbedResult{Vector: unit}
}

func unwrapEmbedding(err error) error {
	if embedErr, ok := err.(*domain.EmbeddingError); ok {
		return embedErr.Err
	}
	return err
}

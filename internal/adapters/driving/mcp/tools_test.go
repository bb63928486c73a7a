package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

func TestServer_handleRunPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the new digest", func(t *testing.T) {
		detail := sampleDetail("run-1")
		pipeline := &mockPipeline{run: detail.Run}
		runs := &mockRunService{details: map[string]*driving.RunDetail{"run-1": detail}}

		server, err := NewServer(&Ports{Pipeline: pipeline, Runs: runs})
		require.NoError(t, err)

		_, output, err := server.handleRunPipeline(ctx, nil, RunPipelineInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, pipeline.calls)
		assert.Equal(t, "run-1", output.RunID)
		assert.Equal(t, "completed", output.Status)
		assert.Equal(t, "2026-03-02T09:00:00Z", output.StartedAt)
		assert.Equal(t, "Markets steady.", output.ExecutiveSummary)
		assert.Equal(t, domain.SentimentNeutral, output.Sentiment)
		assert.NotNil(t, output.Warnings)
		require.Len(t, output.Clusters, 2)
		assert.Equal(t, "Fed holds rates steady", output.Clusters[0].Representative)
		assert.Nil(t, output.Clusters[0].Headlines)
	})

	t.Run("reports a run in progress", func(t *testing.T) {
		pipeline := &mockPipeline{err: domain.ErrRunInProgress, state: domain.RunStateEmbedding}
		server, err := NewServer(&Ports{Pipeline: pipeline, Runs: &mockRunService{}})
		require.NoError(t, err)

		_, _, err = server.handleRunPipeline(ctx, nil, RunPipelineInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already in progress")
		assert.Contains(t, err.Error(), "embedding")
	})

	t.Run("returns the fatal cause of a failed run", func(t *testing.T) {
		pipeline := &mockPipeline{
			run: &domain.PipelineRun{ID: "run-2", Status: domain.RunStateFailed},
			err: domain.NewStorageError("save run", errors.New("disk full")),
		}
		server, err := NewServer(&Ports{Pipeline: pipeline, Runs: &mockRunService{}})
		require.NoError(t, err)

		_, _, err = server.handleRunPipeline(ctx, nil, RunPipelineInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		var storageErr *domain.StorageError
		assert.ErrorAs(t, err, &storageErr)
	})
}

func TestServer_handleLatestDigest(t *testing.T) {
	ctx := context.Background()

	t.Run("includes headlines on request", func(t *testing.T) {
		runs := &mockRunService{latest: sampleDetail("run-9")}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: runs})
		require.NoError(t, err)

		_, output, err := server.handleLatestDigest(ctx, nil, LatestDigestInput{IncludeHeadlines: true})

		require.NoError(t, err)
		assert.Equal(t, "run-9", output.RunID)
		require.Len(t, output.Clusters, 2)
		assert.Equal(t, []string{"Fed holds rates steady", "ECB signals patience"}, output.Clusters[0].Headlines)
	})

	t.Run("no runs yet", func(t *testing.T) {
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: &mockRunService{}})
		require.NoError(t, err)

		_, _, err = server.handleLatestDigest(ctx, nil, LatestDigestInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no pipeline runs yet")
	})

	t.Run("storage failure is passed through", func(t *testing.T) {
		runs := &mockRunService{err: domain.NewStorageError("latest run", errors.New("locked"))}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: runs})
		require.NoError(t, err)

		_, _, err = server.handleLatestDigest(ctx, nil, LatestDigestInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "locked")
	})
}

func TestServer_handleIngestHeadlines(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests with parsed timestamps", func(t *testing.T) {
		headlines := &mockHeadlineService{result: domain.IngestResult{Accepted: 1, Duplicates: 1}}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: &mockRunService{}, Headlines: headlines})
		require.NoError(t, err)

		input := IngestHeadlinesInput{Headlines: []HeadlineInput{
			{Text: "Fed holds rates", Source: "Wire", Timestamp: "2026-03-02T08:30:00Z"},
			{Text: "Fed holds rates", Source: "Wire"},
		}}
		_, output, err := server.handleIngestHeadlines(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Accepted)
		assert.Equal(t, 1, output.Duplicates)
		require.Len(t, headlines.ingested, 2)
		assert.True(t, headlines.ingested[0].Timestamp.Equal(time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)))
		assert.True(t, headlines.ingested[1].Timestamp.IsZero())
	})

	t.Run("rejects bad timestamps", func(t *testing.T) {
		headlines := &mockHeadlineService{}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: &mockRunService{}, Headlines: headlines})
		require.NoError(t, err)

		input := IngestHeadlinesInput{Headlines: []HeadlineInput{{Text: "x", Timestamp: "yesterday"}}}
		_, _, err = server.handleIngestHeadlines(ctx, nil, input)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, headlines.ingested)
	})

	t.Run("rejects empty and oversized batches", func(t *testing.T) {
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: &mockRunService{}, Headlines: &mockHeadlineService{}})
		require.NoError(t, err)

		_, _, err = server.handleIngestHeadlines(ctx, nil, IngestHeadlinesInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		big := make([]HeadlineInput, maxIngestBatch+1)
		for i := range big {
			big[i] = HeadlineInput{Text: fmt.Sprintf("headline %d", i)}
		}
		_, _, err = server.handleIngestHeadlines(ctx, nil, IngestHeadlinesInput{Headlines: big})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

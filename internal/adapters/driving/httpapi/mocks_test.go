package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

// mockPipeline is a mock implementation of driving.PipelineRunner.
type mockPipeline struct {
	run     *domain.PipelineRun
	err     error
	state   domain.RunState
	calls   int
	lastCtx context.Context
}

func (m *mockPipeline) RunNow(ctx context.Context) (*domain.PipelineRun, error) {
	m.calls++
	m.lastCtx = ctx
	return m.run, m.err
}

func (m *mockPipeline) State() domain.RunState {
	if m.state == "" {
		return domain.RunStateIdle
	}
	return m.state
}

func (m *mockPipeline) Active() bool {
	return m.State().IsActive()
}

// mockRunService is a mock implementation of driving.RunService.
type mockRunService struct {
	details    map[string]*driving.RunDetail
	latest     *driving.RunDetail
	list       []domain.PipelineRun
	lastFilter domain.RunFilter
	err        error
}

func (m *mockRunService) Latest(_ context.Context) (*driving.RunDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.latest == nil {
		return nil, domain.ErrNotFound
	}
	return m.latest, nil
}

func (m *mockRunService) Get(_ context.Context, id string) (*driving.RunDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.details[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (m *mockRunService) List(_ context.Context, filter domain.RunFilter) ([]domain.PipelineRun, error) {
	m.lastFilter = filter
	return m.list, m.err
}

// mockHeadlineService is a mock implementation of driving.HeadlineService.
type mockHeadlineService struct {
	mu       sync.Mutex
	ingested []domain.RawHeadline
	result   domain.IngestResult
	err      error
	countErr error
}

func (m *mockHeadlineService) Ingest(_ context.Context, raws []domain.RawHeadline) (domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, raws...)
	return m.result, m.err
}

func (m *mockHeadlineService) IngestFrom(ctx context.Context, source driven.HeadlineSource) (domain.IngestResult, error) {
	raws, err := source.Fetch(ctx)
	if err != nil {
		return domain.IngestResult{}, err
	}
	return m.Ingest(ctx, raws)
}

func (m *mockHeadlineService) LoadRecent(_ context.Context, _ int, _ time.Duration) ([]domain.HeadlineRecord, error) {
	return nil, m.err
}

func (m *mockHeadlineService) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ingested), m.countErr
}

// sampleDetail returns a completed two-cluster run with its headlines.
func sampleDetail(id string) *driving.RunDetail {
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &driving.RunDetail{
		Run: &domain.PipelineRun{
			ID:            id,
			StartedAt:     started,
			FinishedAt:    started.Add(2 * time.Second),
			RequestedK:    2,
			KUsed:         2,
			HeadlineCount: 3,
			Status:        domain.RunStateCompleted,
			Clusters: []domain.Cluster{
				{ID: 0, MemberIDs: []string{"h1", "h2"}, RepresentativeID: "h1"},
				{ID: 1, MemberIDs: []string{"h3"}, RepresentativeID: "h3"},
			},
			Summaries: []domain.ClusterSummary{
				{RunID: id, ClusterID: 0, SummaryText: "Central banks dominate.", HeadlineCount: 2},
				{RunID: id, ClusterID: 1, SummaryText: "Energy prices slip.", HeadlineCount: 1},
			},
			Executive: &domain.ExecutiveSummary{RunID: id, SummaryText: "Markets steady.", SourceClusterCount: 2},
			Sentiment: domain.Sentiment{Neutral: 3, Overall: domain.SentimentNeutral},
		},
		Headlines: map[string]domain.HeadlineRecord{
			"h1": {ID: "h1", Text: "Fed holds rates steady"},
			"h2": {ID: "h2", Text: "ECB signals patience"},
			"h3": {ID: "h3", Text: "Oil slips on supply"},
		},
	}
}

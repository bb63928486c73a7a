package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

func newTestGateway(t *testing.T, llm *mockLLM) (*SummarizerGateway, *memory.SummaryCache) {
	t.Helper()
	cache, err := memory.NewSummaryCache(32, 0)
	require.NoError(t, err)
	return NewSummarizerGateway(llm, cache, nil, testConfig()), cache
}

func TestSummarizeCluster_CacheHitSkipsProvider(t *testing.T) {
	llm := &mockLLM{}
	gw, _ := newTestGateway(t, llm)
	ctx := context.Background()
	headlines := []string{"Fed holds rates steady", "Fed chair warns on inflation"}

	first, err := gw.SummarizeCluster(ctx, 0, headlines, headlines[0])
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, int32(1), llm.calls.Load())

	second, err := gw.SummarizeCluster(ctx, 3, headlines, headlines[0])
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.SummaryText, second.SummaryText)
	assert.Equal(t, 3, second.ClusterID)
	assert.Equal(t, 2, second.HeadlineCount)
	assert.Equal(t, int32(1), llm.calls.Load(), "second call must not reach the provider")
}

func TestSummarizeCluster_CacheKeyIgnoresMemberOrder(t *testing.T) {
	llm := &mockLLM{}
	gw, _ := newTestGateway(t, llm)
	ctx := context.Background()

	_, err := gw.SummarizeCluster(ctx, 0, []string{"a", "b", "c"}, "b")
	require.NoError(t, err)
	again, err := gw.SummarizeCluster(ctx, 0, []string{"c", "a", "b"}, "b")
	require.NoError(t, err)

	assert.True(t, again.Cached)
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestSummaryCacheKey(t *testing.T) {
	base := SummaryCacheKey("m", "cluster", []string{"a", "b"})

	assert.Len(t, base, 64)
	assert.Equal(t, base, SummaryCacheKey("m", "cluster", []string{"a", "b"}))
	assert.NotEqual(t, base, SummaryCacheKey("other", "cluster", []string{"a", "b"}))
	assert.NotEqual(t, base, SummaryCacheKey("m", "executive", []string{"a", "b"}))
	assert.NotEqual(t, base, SummaryCacheKey("m", "cluster", []string{"ab"}))
}

func TestSummarizeCluster_RetriesTransientFailures(t *testing.T) {
	llm := &mockLLM{transient: 2}
	gw, _ := newTestGateway(t, llm)

	summary, err := gw.SummarizeCluster(context.Background(), 1, []string{"Oil jumps"}, "Oil jumps")
	require.NoError(t, err)

	assert.Equal(t, "Summary: Oil jumps", summary.SummaryText)
	assert.Equal(t, int32(3), llm.calls.Load())
}

func TestSummarizeCluster_RetriesExhausted(t *testing.T) {
	llm := &mockLLM{transient: 10}
	gw, cache := newTestGateway(t, llm)

	_, err := gw.SummarizeCluster(context.Background(), 2, []string{"Oil jumps"}, "Oil jumps")
	require.Error(t, err)

	var sumErr *domain.SummarizationError
	require.ErrorAs(t, err, &sumErr)
	assert.Equal(t, 2, sumErr.ClusterID)
	assert.Equal(t, 3, sumErr.Attempts)
	assert.True(t, domain.IsRecoverable(err))

	var genErr *driven.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 503, genErr.StatusCode)
	assert.Zero(t, cache.Len(), "failures are not cached")
}

func TestSummarizeCluster_PermanentFailureNotRetried(t *testing.T) {
	llm := &mockLLM{failOn: []string{"Oil"}, failErr: errors.New("invalid api key")}
	gw, _ := newTestGateway(t, llm)

	_, err := gw.SummarizeCluster(context.Background(), 0, []string{"Oil jumps"}, "Oil jumps")
	require.Error(t, err)

	assert.Equal(t, int32(1), llm.calls.Load())
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestSummarizeExecutive_NotesOmissions(t *testing.T) {
	llm := &mockLLM{}
	gw, _ := newTestGateway(t, llm)
	summaries := []domain.ClusterSummary{
		{ClusterID: 0, SummaryText: "Rates on hold.", HeadlineCount: 4},
		{ClusterID: 2, SummaryText: "Oil higher.", HeadlineCount: 3},
	}

	exec, err := gw.SummarizeExecutive(context.Background(), summaries, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, exec.SourceClusterCount)
	assert.Equal(t, 1, exec.OmittedClusterCount)
	assert.Contains(t, exec.SummaryText, "Overview of the day.")
	assert.Contains(t, exec.SummaryText, OmissionNote(1))

	llm.mu.Lock()
	prompt := llm.prompts[0]
	llm.mu.Unlock()
	assert.Contains(t, prompt, "Cluster 0 (4 headlines): Rates on hold.")
	assert.Contains(t, prompt, "Cluster 2 (3 headlines): Oil higher.")
}

func TestSummarizeExecutive_NoOmissions(t *testing.T) {
	gw, _ := newTestGateway(t, &mockLLM{})

	exec, err := gw.SummarizeExecutive(context.Background(),
		[]domain.ClusterSummary{{ClusterID: 0, SummaryText: "Rates on hold."}}, 0)
	require.NoError(t, err)

	assert.Equal(t, "Overview of the day.", exec.SummaryText)
}

func TestSummarizeExecutive_RequiresSummaries(t *testing.T) {
	llm := &mockLLM{}
	gw, _ := newTestGateway(t, llm)

	_, err := gw.SummarizeExecutive(context.Background(), nil, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, llm.calls.Load())
}

func TestOmissionNote(t *testing.T) {
	assert.Equal(t, "Note: 1 cluster was omitted because its summary was unavailable.", OmissionNote(1))
	assert.Equal(t, "Note: 3 clusters were omitted because their summaries were unavailable.", OmissionNote(3))
}

func TestSummarizeAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	llm := &mockLLM{failOn: []string{"Crypto"}}
	gw, _ := newTestGateway(t, llm)
	inputs := []ClusterInput{
		{ClusterID: 0, Headlines: []string{"Fed holds"}, Representative: "Fed holds"},
		{ClusterID: 1, Headlines: []string{"Crypto slides"}, Representative: "Crypto slides"},
		{ClusterID: 2, Headlines: []string{"Oil jumps"}, Representative: "Oil jumps"},
		{ClusterID: 3, Headlines: []string{"Housing cools"}, Representative: "Housing cools"},
	}

	outcomes := gw.SummarizeAll(context.Background(), inputs)

	require.Len(t, outcomes, 4)
	assert.Equal(t, "Summary: Fed holds", outcomes[0].Summary.SummaryText)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, "Summary: Oil jumps", outcomes[2].Summary.SummaryText)
	assert.Equal(t, 3, outcomes[3].Summary.ClusterID)
}

func TestSummarizeAll_ProviderPanicReachesCaller(t *testing.T) {
	llm := &mockLLM{panicOn: "Crypto"}
	gw, _ := newTestGateway(t, llm)
	inputs := []ClusterInput{
		{ClusterID: 0, Headlines: []string{"Fed holds"}, Representative: "Fed holds"},
		{ClusterID: 1, Headlines: []string{"Crypto slides"}, Representative: "Crypto slides"},
	}

	assert.PanicsWithError(t, "assignment to entry in nil map", func() {
		gw.SummarizeAll(context.Background(), inputs)
	})
}

func TestSummarizeExecutive_CacheKeyCoversClusterIDs(t *testing.T) {
	llm := &mockLLM{}
	gw, _ := newTestGateway(t, llm)
	ctx := context.Background()

	_, err := gw.SummarizeExecutive(ctx, []domain.ClusterSummary{
		{ClusterID: 0, SummaryText: "Rates on hold.", HeadlineCount: 4},
	}, 0)
	require.NoError(t, err)
	_, err = gw.SummarizeExecutive(ctx, []domain.ClusterSummary{
		{ClusterID: 1, SummaryText: "Rates on hold.", HeadlineCount: 4},
	}, 0)
	require.NoError(t, err)
	_, err = gw.SummarizeExecutive(ctx, []domain.ClusterSummary{
		{ClusterID: 1, SummaryText: "Rates on hold.", HeadlineCount: 9},
	}, 0)
	require.NoError(t, err)
	_, err = gw.SummarizeExecutive(ctx, []domain.ClusterSummary{
		{ClusterID: 1, SummaryText: "Rates on hold.", HeadlineCount: 9},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, int32(3), llm.calls.Load())
}

func TestSummarizeAll_CancelledBeforeStart(t *testing.T) {
	llm := &mockLLM{}
	gw, _ := newTestGateway(t, llm)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := gw.SummarizeAll(ctx, []ClusterInput{{ClusterID: 0, Headlines: []string{"x"}, Representative: "x"}})

	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
	assert.Zero(t, llm.calls.Load())
}

func TestSummarizeAll_InFlightCallFinishesAfterCancel(t *testing.T) {
	llm := &mockLLM{block: make(chan struct{})}
	gw, _ := newTestGateway(t, llm)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan []ClusterOutcome, 1)
	go func() {
		done <- gw.SummarizeAll(ctx, []ClusterInput{{ClusterID: 0, Headlines: []string{"x"}, Representative: "x"}})
	}()

	require.Eventually(t, func() bool { return llm.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	close(llm.block)

	outcomes := <-done
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "Summary: x", outcomes[0].Summary.SummaryText)
}

type brokenCache struct{}

func (brokenCache) Get(_ context.Context, _ string) (string, error) { return "", errors.New("redis down") }
func (brokenCache) Put(_ context.Context, _, _ string) error        { return errors.New("redis down") }
func (brokenCache) Prune(_ context.Context) (int, error)            { return 0, nil }

func TestSummarizeCluster_CacheErrorsDoNotFailCall(t *testing.T) {
	llm := &mockLLM{}
	gw := NewSummarizerGateway(llm, brokenCache{}, nil, testConfig())

	summary, err := gw.SummarizeCluster(context.Background(), 0, []string{"Gold rallies"}, "Gold rallies")
	require.NoError(t, err)
	assert.Equal(t, "Summary: Gold rallies", summary.SummaryText)
}

type staticPrompts map[string]string

func (p staticPrompts) Load(name string) (string, error) {
	if tmpl, ok := p[name]; ok {
		return tmpl, nil
	}
	return "", domain.ErrNotFound
}

func (p staticPrompts) Reload() {}

func TestSummarizeCluster_UsesPromptStore(t *testing.T) {
	llm := &mockLLM{}
	prompts := staticPrompts{driven.PromptClusterSummary: "REP=%s\n%s"}
	gw := NewSummarizerGateway(llm, nil, prompts, testConfig())

	_, err := gw.SummarizeCluster(context.Background(), 0, []string{"Gold rallies"}, "Gold rallies")
	require.NoError(t, err)

	llm.mu.Lock()
	defer llm.mu.Unlock()
	assert.Equal(t, "REP=Gold rallies\n- Gold rallies", llm.prompts[0])
}

func TestCleanResponse(t *testing.T) {
	assert.Equal(t, "text", cleanResponse("  text \n"))
	assert.Equal(t, "line one\nline two", cleanResponse("```markdown\nline one\nline two\n```"))
	assert.Empty(t, cleanResponse("   "))
}

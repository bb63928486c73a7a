package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/llm/stub"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/services"
)

// testEnv holds the services wired into the command package for a test.
type testEnv struct {
	cfg       domain.Config
	headlines *services.HeadlineService
	pipeline  *services.Pipeline
	runs      *services.RunService
	cache     *fakeCache
	validator *fakeValidator
}

// setupTestServices wires real services over in-memory stores, the
// hashing embedder and the stub summariser.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	cfg := domain.DefaultConfig()
	cfg.Pipeline.KClusters = 3
	cfg.Pipeline.Restarts = 2
	cfg.Embedding.Dimensions = 64
	cfg.Retry.BackoffBase = 0

	headlineStore := memory.NewHeadlineStore()
	runStore := memory.NewRunStore()
	summaries, err := memory.NewSummaryCache(64, 0)
	require.NoError(t, err)

	ingest := services.NewHeadlineService(headlineStore, nil)
	pipeline := services.NewPipeline(services.PipelineDeps{
		Headlines:  headlineStore,
		Runs:       runStore,
		Ingest:     ingest,
		Embedder:   services.NewEmbedder(hashing.NewEmbeddingService(cfg.Embedding.Dimensions), cfg.Embedding),
		Engine:     services.NewClusterEngine(cfg.Pipeline),
		Summarizer: services.NewSummarizerGateway(stub.New(), summaries, nil, cfg),
	}, cfg.Pipeline)

	env := &testEnv{
		cfg:       cfg,
		headlines: ingest,
		pipeline:  pipeline,
		runs:      services.NewRunService(runStore, headlineStore),
		cache:     &fakeCache{pruned: 3},
		validator: &fakeValidator{},
	}
	SetServices(&Services{
		Config:          cfg,
		Headlines:       env.headlines,
		Pipeline:        env.pipeline,
		Runs:            env.runs,
		SummaryCache:    env.cache,
		ConfigValidator: env.validator,
	})
	t.Cleanup(resetServices)
	return env
}

// resetServices clears injected services and flag state.
func resetServices() {
	appConfig = domain.DefaultConfig()
	configSource = nil
	headlineService = nil
	pipelineRunner = nil
	runService = nil
	scheduler = nil
	summaryCache = nil
	configValidator = nil
	bootstrap = nil
	servicesReady = false
	cleanup = nil
	resetFlags(rootCmd)
}

// resetFlags restores every flag to its default. Cobra keeps parsed
// values on the command between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// seedRun ingests sample headlines and completes one run.
func seedRun(t *testing.T, env *testEnv) *domain.PipelineRun {
	t.Helper()
	ctx := context.Background()
	_, err := env.headlines.Ingest(ctx, sampleHeadlines())
	require.NoError(t, err)
	run, err := env.pipeline.RunNow(ctx)
	require.NoError(t, err)
	return run
}

func sampleHeadlines() []domain.RawHeadline {
	texts := []string{
		"Apple stock rises on strong iPhone sales",
		"Apple shares climb after iPhone demand beats forecasts",
		"Federal Reserve signals interest rate cuts",
		"Federal Reserve holds interest rate steady",
		"Oil prices surge on Middle East tensions",
		"Oil prices fall as supply concerns ease",
	}
	raws := make([]domain.RawHeadline, len(texts))
	for i, text := range texts {
		raws[i] = domain.RawHeadline{Text: text, Source: "Wire"}
	}
	return raws
}

type fakeCache struct {
	pruned int
	err    error
	calls  int
}

func (c *fakeCache) Get(context.Context, string) (string, error) { return "", domain.ErrCacheMiss }
func (c *fakeCache) Put(context.Context, string, string) error   { return nil }

func (c *fakeCache) Prune(context.Context) (int, error) {
	c.calls++
	return c.pruned, c.err
}

type fakeValidator struct {
	embeddingErr error
	llmErr       error
}

func (v *fakeValidator) ValidateEmbedding(context.Context, *domain.EmbeddingSettings) error {
	return v.embeddingErr
}

func (v *fakeValidator) ValidateLLM(context.Context, *domain.LLMSettings) error {
	return v.llmErr
}

type fakeScheduler struct {
	results []domain.TaskResult
	taskID  string
	limit   int
}

func (s *fakeScheduler) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeScheduler) Stop() error { return nil }

func (s *fakeScheduler) History(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	s.taskID, s.limit = taskID, limit
	if taskID != domain.TaskIDPipelineRun && taskID != domain.TaskIDCachePrune {
		return nil, fmt.Errorf("%w: unknown task %q", domain.ErrInvalidInput, taskID)
	}
	return s.results, nil
}

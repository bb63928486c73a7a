package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/ai"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/config/env"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/config/file"
	filesource "github.com/custodia-labs/newsdigest/internal/adapters/driven/source/file"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/newsdigest/internal/adapters/driving/cli"
	"github.com/custodia-labs/newsdigest/internal/adapters/driving/scheduler"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/services"
	"github.com/custodia-labs/newsdigest/internal/logger"
	"github.com/custodia-labs/newsdigest/internal/normalisers/html"
)

// closers runs cleanup funcs in reverse order of registration.
type closers []func()

func (c *closers) add(fn func()) {
	*c = append(*c, fn)
}

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// bootstrap resolves configuration and builds the service graph.
func bootstrap(ctx context.Context) (*cli.Services, func(), error) {
	log := logger.With("bootstrap")

	configDir, err := file.DefaultDir()
	if err != nil {
		return nil, nil, err
	}
	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	overlay := env.New(fileStore)
	cfg, err := services.NewSettingsService(overlay).Resolve()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var cleanup closers
	fail := func(err error) (*cli.Services, func(), error) {
		cleanup.close()
		return nil, nil, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fail(fmt.Errorf("opening store: %w", err))
	}
	cleanup.add(func() { _ = store.Close() })
	log.DebugContext(ctx, "store opened", "path", store.Path())

	cache, closeCache, err := newSummaryCache(ctx, cfg.Cache, store)
	if err != nil {
		return fail(fmt.Errorf("opening summary cache: %w", err))
	}
	cleanup.add(closeCache)

	providers, err := ai.CreateServices(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	cleanup.add(providers.Close)

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return fail(err)
	}

	sources, err := headlineSources(cfg.Pipeline.Sources)
	if err != nil {
		return fail(err)
	}

	headlineStore := store.HeadlineStore()
	runStore := store.RunStore()

	ingest := services.NewHeadlineService(headlineStore, html.New())
	pipeline := services.NewPipeline(services.PipelineDeps{
		Headlines:  headlineStore,
		Runs:       runStore,
		Ingest:     ingest,
		Sources:    sources,
		Embedder:   services.NewEmbedder(providers.Embedding, cfg.Embedding),
		Engine:     services.NewClusterEngine(cfg.Pipeline),
		Summarizer: services.NewSummarizerGateway(providers.LLM, cache, prompts, cfg),
	}, cfg.Pipeline)

	log.DebugContext(ctx, "services ready",
		"embedding", cfg.Embedding.Provider,
		"llm", cfg.LLM.Provider,
		"cache", cfg.Cache.Backend,
		"sources", len(sources))

	return &cli.Services{
		Config:          cfg,
		ConfigSource:    overlay.Source,
		Headlines:       ingest,
		Pipeline:        pipeline,
		Runs:            services.NewRunService(runStore, headlineStore),
		Scheduler:       scheduler.New(cfg.Scheduler, store.SchedulerStore(), pipeline, cache),
		SummaryCache:    cache,
		ConfigValidator: ai.NewConfigValidator(),
	}, cleanup.close, nil
}

// newSummaryCache opens the configured cache backend.
func newSummaryCache(
	ctx context.Context,
	settings domain.CacheSettings,
	store *sqlite.Store,
) (driven.SummaryCache, func(), error) {
	switch settings.Backend {
	case domain.CacheBackendMemory:
		cache, err := memory.NewSummaryCache(settings.Size, settings.TTL)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() {}, nil
	case domain.CacheBackendRedis:
		cache, err := redis.NewSummaryCache(ctx, settings.RedisURL, settings.TTL)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	default:
		return store.SummaryCache(settings.TTL, settings.Size), func() {}, nil
	}
}

// headlineSources opens the files every run pulls from.
func headlineSources(paths []string) ([]driven.HeadlineSource, error) {
	sources := make([]driven.HeadlineSource, 0, len(paths))
	for _, path := range paths {
		src, err := filesource.New(path)
		if err != nil {
			return nil, fmt.Errorf("pipeline source %s: %w", path, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyDataDir             = "data_dir"
	KeyKClusters           = "pipeline.k_clusters"
	KeyMaxHeadlines        = "pipeline.max_headlines_per_run"
	KeyMaxAge              = "pipeline.max_age"
	KeySeed                = "pipeline.seed"
	KeyRestarts            = "pipeline.restarts"
	KeyMaxIterations       = "pipeline.max_iterations"
	KeySources             = "pipeline.sources"
	KeyEmbedProvider       = "embedding.provider"
	KeyEmbedModel          = "embedding.model"
	KeyEmbedBaseURL        = "embedding.base_url"
	KeyEmbedAPIKey         = "embedding.api_key"
	KeyEmbedBatchSize      = "embedding.batch_size"
	KeyEmbedConcurrency    = "embedding.concurrency"
	KeyEmbedDimensions     = "embedding.dimensions"
	KeyLLMProvider         = "llm.provider"
	KeyLLMModel            = "llm.model"
	KeyLLMBaseURL          = "llm.base_url"
	KeyLLMAPIKey           = "llm.api_key"
	KeyLLMConcurrency      = "llm.concurrency"
	KeyLLMRequestsPerMin   = "llm.requests_per_minute"
	KeyLLMMaxTokens        = "llm.max_tokens"
	KeyRetryMaxAttempts    = "retry.max_attempts"
	KeyRetryBackoffBaseMS  = "retry.backoff_base_ms"
	KeyRetryMaxBackoff     = "retry.max_backoff"
	KeyCacheBackend        = "cache.backend"
	KeyCacheSize           = "cache.size"
	KeyCacheTTL            = "cache.ttl"
	KeyCacheRedisURL       = "cache.redis_url"
	KeySchedulerEnabled    = "scheduler.enabled"
	KeySchedulerInterval   = "scheduler.interval"
	KeyHTTPAddr            = "http.addr"
	schedulerTaskKeyPrefix = "scheduler."
)

// SettingsService resolves domain.Config from a config store.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Resolve overlays stored values on the built-in defaults and validates
// the result. Unset keys keep their default; malformed durations and
// out-of-range numbers are reported as domain.ErrInvalidInput.
func (s *SettingsService) Resolve() (domain.Config, error) {
	cfg := domain.DefaultConfig()
	var err error

	cfg.DataDir = s.getString(KeyDataDir, cfg.DataDir)

	cfg.Pipeline.KClusters = s.getInt(KeyKClusters, cfg.Pipeline.KClusters)
	cfg.Pipeline.MaxHeadlinesPerRun = s.getInt(KeyMaxHeadlines, cfg.Pipeline.MaxHeadlinesPerRun)
	if cfg.Pipeline.MaxAge, err = s.getDuration(KeyMaxAge, cfg.Pipeline.MaxAge); err != nil {
		return cfg, err
	}
	cfg.Pipeline.Seed = int64(s.getInt(KeySeed, int(cfg.Pipeline.Seed)))
	cfg.Pipeline.Restarts = s.getInt(KeyRestarts, cfg.Pipeline.Restarts)
	cfg.Pipeline.MaxIterations = s.getInt(KeyMaxIterations, cfg.Pipeline.MaxIterations)
	cfg.Pipeline.Sources = s.getStringList(KeySources)

	cfg.Embedding.Provider = domain.AIProvider(s.getString(KeyEmbedProvider, cfg.Embedding.Provider.String()))
	cfg.Embedding.Model = s.getString(KeyEmbedModel, defaultEmbeddingModel(cfg.Embedding.Provider))
	cfg.Embedding.BaseURL = s.configStore.GetString(KeyEmbedBaseURL)
	cfg.Embedding.APIKey = s.configStore.GetString(KeyEmbedAPIKey)
	cfg.Embedding.BatchSize = s.getInt(KeyEmbedBatchSize, cfg.Embedding.BatchSize)
	cfg.Embedding.Concurrency = s.getInt(KeyEmbedConcurrency, cfg.Embedding.Concurrency)
	cfg.Embedding.Dimensions = s.getInt(KeyEmbedDimensions, cfg.Embedding.Dimensions)

	cfg.LLM.Provider = domain.AIProvider(s.getString(KeyLLMProvider, cfg.LLM.Provider.String()))
	cfg.LLM.Model = s.getString(KeyLLMModel, defaultLLMModel(cfg.LLM.Provider))
	cfg.LLM.BaseURL = s.configStore.GetString(KeyLLMBaseURL)
	cfg.LLM.APIKey = s.configStore.GetString(KeyLLMAPIKey)
	cfg.LLM.Concurrency = s.getInt(KeyLLMConcurrency, cfg.LLM.Concurrency)
	cfg.LLM.RequestsPerMinute = s.getInt(KeyLLMRequestsPerMin, cfg.LLM.RequestsPerMinute)
	cfg.LLM.MaxTokens = s.getInt(KeyLLMMaxTokens, cfg.LLM.MaxTokens)

	cfg.Retry.MaxAttempts = s.getInt(KeyRetryMaxAttempts, cfg.Retry.MaxAttempts)
	baseMS := s.getInt(KeyRetryBackoffBaseMS, int(cfg.Retry.BackoffBase/time.Millisecond))
	cfg.Retry.BackoffBase = time.Duration(baseMS) * time.Millisecond
	if cfg.Retry.MaxBackoff, err = s.getDuration(KeyRetryMaxBackoff, cfg.Retry.MaxBackoff); err != nil {
		return cfg, err
	}

	cfg.Cache.Backend = domain.CacheBackend(s.getString(KeyCacheBackend, string(cfg.Cache.Backend)))
	cfg.Cache.Size = s.getInt(KeyCacheSize, cfg.Cache.Size)
	if cfg.Cache.TTL, err = s.getDuration(KeyCacheTTL, cfg.Cache.TTL); err != nil {
		return cfg, err
	}
	cfg.Cache.RedisURL = s.configStore.GetString(KeyCacheRedisURL)

	if cfg.Scheduler, err = s.schedulerConfig(); err != nil {
		return cfg, err
	}
	cfg.HTTP.Addr = s.getString(KeyHTTPAddr, cfg.HTTP.Addr)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// schedulerConfig reads the master switch and per-task overrides.
// scheduler.interval is shorthand for the pipeline task's interval.
func (s *SettingsService) schedulerConfig() (domain.SchedulerConfig, error) {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool(KeySchedulerEnabled, cfg.Enabled)

	// Map from task ID to config key (underscore version for TOML)
	taskKeys := map[string]string{
		domain.TaskIDPipelineRun: "pipeline_run",
		domain.TaskIDCachePrune:  "cache_prune",
	}

	for taskID, configKey := range taskKeys {
		prefix := schedulerTaskKeyPrefix + configKey + "."
		taskCfg := cfg.TaskConfigs[taskID]

		taskCfg.Enabled = s.getBool(prefix+"enabled", taskCfg.Enabled)

		fallback := taskCfg.Interval
		if taskID == domain.TaskIDPipelineRun {
			d, err := s.getDuration(KeySchedulerInterval, fallback)
			if err != nil {
				return cfg, err
			}
			fallback = d
		}
		d, err := s.getDuration(prefix+"interval", fallback)
		if err != nil {
			return cfg, err
		}
		if d <= 0 {
			return cfg, fmt.Errorf("%w: %sinterval must be positive", domain.ErrInvalidInput, prefix)
		}
		taskCfg.Interval = d

		cfg.TaskConfigs[taskID] = taskCfg
	}
	return cfg, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt returns defaultVal only when the key is absent, so an explicit
// zero reaches validation.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getStringList accepts a TOML array or a comma-separated string.
func (s *SettingsService) getStringList(key string) []string {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return nil
	}
	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok {
				items = append(items, str)
			}
		}
	case string:
		items = strings.Split(v, ",")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getDuration parses a duration string like "45m" or "72h".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

// defaultEmbeddingModel returns the default model for an embedding provider.
func defaultEmbeddingModel(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOllama:
		return "nomic-embed-text"
	case domain.AIProviderOpenAI:
		return "text-embedding-3-small"
	default:
		return "hashing-v1"
	}
}

// defaultLLMModel returns the default model for a text-generation provider.
func defaultLLMModel(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOllama:
		return "llama3.2"
	case domain.AIProviderOpenAI:
		return "gpt-4o-mini"
	case domain.AIProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case domain.AIProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "stub-v1"
	}
}

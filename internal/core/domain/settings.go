package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a provider for embeddings or text generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in deterministic feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderStub is the built-in offline keyword summariser.
	AIProviderStub AIProvider = "stub"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google's Gemini generateContent API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValidEmbedding returns true if the provider can serve embeddings.
func (p AIProvider) IsValidEmbedding() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// IsValidLLM returns true if the provider can serve text generation.
func (p AIProvider) IsValidLLM() bool {
	switch p {
	case AIProviderStub, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs without network access to a cloud API.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing || p == AIProviderStub
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Feature hashing (built-in)"
	case AIProviderStub:
		return "Keyword summariser (built-in)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// PipelineSettings controls what a run clusters.
type PipelineSettings struct {
	// KClusters is the desired cluster count before clamping.
	KClusters int

	// MaxHeadlinesPerRun caps how many recent headlines are clustered.
	MaxHeadlinesPerRun int

	// MaxAge excludes headlines older than this; zero disables the limit.
	MaxAge time.Duration

	// Seed fixes the clustering random source.
	Seed int64

	// Restarts is the number of k-means initialisations tried per run.
	Restarts int

	// MaxIterations bounds each k-means restart.
	MaxIterations int

	// Sources lists headline files pulled into the store at the start of
	// every run.
	Sources []string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is how many texts go into one provider call.
	BatchSize int

	// Concurrency bounds how many batches are in flight.
	Concurrency int

	// Dimensions sets the vector size for the hashing provider.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds text-generation provider configuration.
type LLMSettings struct {
	// Provider is the text-generation provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Concurrency bounds simultaneous cluster summary calls.
	Concurrency int

	// RequestsPerMinute is the sustained call rate allowed.
	RequestsPerMinute int

	// MaxTokens caps each generated summary.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if l.Provider == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrySettings bounds retries of external generation calls.
type RetrySettings struct {
	// MaxAttempts includes the first call.
	MaxAttempts int

	// BackoffBase is the delay before the first retry; it doubles each attempt.
	BackoffBase time.Duration

	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration
}

// CacheBackend selects where generated summaries are cached.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendSQLite CacheBackend = "sqlite"
	CacheBackendRedis  CacheBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendMemory, CacheBackendSQLite, CacheBackendRedis:
		return true
	default:
		return false
	}
}

// CacheSettings configures the summary response cache.
type CacheSettings struct {
	Backend CacheBackend

	// Size is the entry limit for the in-memory LRU and the SQLite table.
	// The SQLite cache evicts its oldest entries past the limit.
	Size int

	// TTL expires persistent entries; zero keeps them forever.
	TTL time.Duration

	// RedisURL is used when Backend is redis.
	RedisURL string
}

// HTTPSettings configures the HTTP API.
type HTTPSettings struct {
	Addr string
}

// Config is the complete application configuration. It is resolved once
// at process start and passed to constructors by value.
type Config struct {
	DataDir   string
	Pipeline  PipelineSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Retry     RetrySettings
	Cache     CacheSettings
	Scheduler SchedulerConfig
	HTTP      HTTPSettings
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Pipeline: PipelineSettings{
			KClusters:          10,
			MaxHeadlinesPerRun: 200,
			MaxAge:             72 * time.Hour,
			Seed:               42,
			Restarts:           10,
			MaxIterations:      300,
		},
		Embedding: EmbeddingSettings{
			Provider:    AIProviderHashing,
			Model:       "hashing-v1",
			BatchSize:   32,
			Concurrency: 4,
			Dimensions:  384,
		},
		LLM: LLMSettings{
			Provider:          AIProviderStub,
			Model:             "stub-v1",
			Concurrency:       4,
			RequestsPerMinute: 60,
			MaxTokens:         512,
		},
		Retry: RetrySettings{
			MaxAttempts: 3,
			BackoffBase: 500 * time.Millisecond,
			MaxBackoff:  30 * time.Second,
		},
		Cache: CacheSettings{
			Backend: CacheBackendSQLite,
			Size:    1024,
			TTL:     7 * 24 * time.Hour,
		},
		Scheduler: DefaultSchedulerConfig(),
		HTTP:      HTTPSettings{Addr: ":8080"},
	}
}

// Validate checks the configuration for values no component can work with.
func (c Config) Validate() error {
	switch {
	case c.Pipeline.KClusters < 1:
		return fmt.Errorf("%w: k_clusters must be at least 1, got %d", ErrInvalidInput, c.Pipeline.KClusters)
	case c.Pipeline.MaxHeadlinesPerRun < 1:
		return fmt.Errorf("%w: max_headlines_per_run must be at least 1, got %d",
			ErrInvalidInput, c.Pipeline.MaxHeadlinesPerRun)
	case c.Pipeline.Restarts < 1 || c.Pipeline.MaxIterations < 1:
		return fmt.Errorf("%w: clustering restarts and iterations must be positive", ErrInvalidInput)
	case c.Retry.MaxAttempts < 1:
		return fmt.Errorf("%w: retry max_attempts must be at least 1, got %d", ErrInvalidInput, c.Retry.MaxAttempts)
	case c.Retry.BackoffBase < 0:
		return fmt.Errorf("%w: retry backoff must not be negative", ErrInvalidInput)
	case c.LLM.Concurrency < 1 || c.Embedding.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidInput)
	case c.Embedding.BatchSize < 1:
		return fmt.Errorf("%w: embedding batch_size must be at least 1", ErrInvalidInput)
	case !c.Embedding.Provider.IsValidEmbedding():
		return fmt.Errorf("%w: unknown embedding provider %q", ErrUnsupportedType, c.Embedding.Provider)
	case !c.LLM.Provider.IsValidLLM():
		return fmt.Errorf("%w: unknown llm provider %q", ErrUnsupportedType, c.LLM.Provider)
	case !c.Cache.Backend.IsValid():
		return fmt.Errorf("%w: unknown cache backend %q", ErrUnsupportedType, c.Cache.Backend)
	case c.Cache.Backend == CacheBackendMemory && c.Cache.Size < 1:
		return fmt.Errorf("%w: cache size must be at least 1", ErrInvalidInput)
	}
	return nil
}

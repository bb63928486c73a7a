// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/newsdigest/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/newsdigest/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/newsdigest/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/newsdigest/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/newsdigest/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/newsdigest/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/llm/stub"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "check the provider settings in config.toml or the environment"

// Services holds the AI adapters a pipeline needs.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.LLM != nil {
		_ = s.LLM.Close()
	}
}

// CreateServices builds both adapters from cfg and pings them. Any
// failure closes what was already built.
func CreateServices(ctx context.Context, cfg domain.Config) (*Services, error) {
	embedder, err := CreateAndValidateEmbeddingService(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := CreateAndValidateLLMService(ctx, &cfg.LLM)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	return &Services{Embedding: embedder, LLM: llm}, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w); %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w); %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// CreateEmbeddingService creates the embedding service named by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, fmt.Errorf("no embedding provider configured")
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s requires an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic, domain.AIProviderGemini, domain.AIProviderStub:
		return nil, fmt.Errorf("%w: %s does not provide embeddings, use hashing, ollama or openai",
			domain.ErrUnsupportedType, settings.Provider)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the text-generation service named by settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, fmt.Errorf("no llm provider configured")
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s requires an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderStub:
		return stub.New(), nil

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service. The hashing
// default of 384 dimensions is not passed through, since OpenAI models
// report their own native size.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := settings.Dimensions
	if dimensions == hashing.DefaultDimensions {
		dimensions = 0
	}

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

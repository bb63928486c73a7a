package driven

import (
	"context"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying AI services.
type AIConfigValidator interface {
	// ValidateEmbedding builds the configured embedder and pings it.
	ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error

	// ValidateLLM builds the configured text generator and pings it.
	ValidateLLM(ctx context.Context, config *domain.LLMSettings) error
}

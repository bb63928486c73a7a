package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

func TestNewConfigValidator(t *testing.T) {
	validator := NewConfigValidator()

	require.NotNil(t, validator)
}

func TestConfigValidator_ValidateEmbedding(t *testing.T) {
	validator := NewConfigValidator()
	ctx := context.Background()

	assert.Error(t, validator.ValidateEmbedding(ctx, nil))
	assert.NoError(t, validator.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderHashing}))
	assert.ErrorIs(t,
		validator.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderStub}),
		domain.ErrUnsupportedType)
}

func TestConfigValidator_ValidateLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	validator := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, validator.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderStub}))
	assert.NoError(t, validator.ValidateLLM(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	}))
	assert.Error(t, validator.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderAnthropic}))
}

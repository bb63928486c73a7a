package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.Error(t, err)
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
}

func TestGenerate_Success(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultLLMModel, req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "summarise this", req.Messages[0].Content)
		assert.Equal(t, 300, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Tech stocks rallied."},"finish_reason":"stop"}]}`))
	})

	out, err := svc.Generate(context.Background(), "summarise this", driven.GenerateOptions{MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Tech stocks rallied.", out)
}

func TestGenerate_EmptyChoices(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.Error(t, err)
	assert.False(t, driven.IsTransient(err))
}

func TestGenerate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "2")
				http.Error(w, `{"error":"nope"}`, tt.status)
			})

			_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.transient, driven.IsTransient(err))

			var genErr *driven.GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.status, genErr.StatusCode)
			assert.Equal(t, "openai", genErr.Provider)
		})
	}
}

func TestGenerate_TransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, driven.IsTransient(err))
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))

	svc.apiKey = "wrong"
	assert.Error(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}

package ollama

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
	return NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "llama3.2:1b"})
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc := NewLLMService(LLMConfig{})
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
}

func TestGenerate_Success(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2:1b", req.Model)
		assert.False(t, req.Stream)
		require.NotNil(t, req.Options)
		assert.Equal(t, 128, req.Options.NumPredict)

		_, _ = w.Write([]byte(`{"response":"Oil slipped.","done":true}`))
	})

	out, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{MaxTokens: 128})
	require.NoError(t, err)
	assert.Equal(t, "Oil slipped.", out)
}

func TestGenerate_OmitsEmptyOptions(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.NotContains(t, raw, "options")
		_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
	})

	_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("error field", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
		})
		_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("empty response", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response":"","done":true}`))
		})
		_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
		assert.Error(t, err)
	})

	t.Run("not found is permanent", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"model 'x' not found"}`, http.StatusNotFound)
		})
		_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
		require.Error(t, err)
		assert.False(t, driven.IsTransient(err))
	})
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))
}

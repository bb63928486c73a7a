package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

func TestExtractRunID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid run URI",
			uri:      "digest://runs/0195a1b2-run",
			expected: "0195a1b2-run",
		},
		{
			name:     "latest alias",
			uri:      "digest://runs/latest",
			expected: "latest",
		},
		{
			name:     "invalid prefix",
			uri:      "file://runs/run-1",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "digest://runs/run-1/clusters",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractRunID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleLatestResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the latest digest as JSON", func(t *testing.T) {
		runs := &mockRunService{latest: sampleDetail("run-7")}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: runs})
		require.NoError(t, err)

		result, err := server.handleLatestResource(ctx, makeReadResourceRequest(latestRunURI))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var digest driving.Digest
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &digest))
		assert.Equal(t, "run-7", digest.RunID)
		assert.Equal(t, "Markets steady.", digest.Executive)
		require.Len(t, digest.Clusters, 2)
		assert.Equal(t, "Energy prices slip.", digest.Clusters[1].Summary)
	})

	t.Run("no runs is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: &mockRunService{}})
		require.NoError(t, err)

		_, err = server.handleLatestResource(ctx, makeReadResourceRequest(latestRunURI))

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("wraps storage failures", func(t *testing.T) {
		runs := &mockRunService{err: errors.New("database error")}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: runs})
		require.NoError(t, err)

		_, err = server.handleLatestResource(ctx, makeReadResourceRequest(latestRunURI))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading latest run")
	})
}

func TestServer_handleRunResource(t *testing.T) {
	ctx := context.Background()
	runs := &mockRunService{
		details: map[string]*driving.RunDetail{"run-1": sampleDetail("run-1")},
		latest:  sampleDetail("run-2"),
	}
	server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Runs: runs})
	require.NoError(t, err)

	t.Run("returns the named run", func(t *testing.T) {
		result, err := server.handleRunResource(ctx, makeReadResourceRequest("digest://runs/run-1"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"run_id": "run-1"`)
	})

	t.Run("latest through the template", func(t *testing.T) {
		result, err := server.handleRunResource(ctx, makeReadResourceRequest(latestRunURI))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"run_id": "run-2"`)
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := server.handleRunResource(ctx, makeReadResourceRequest("digest://runs/missing"))
		require.Error(t, err)
	})

	t.Run("malformed URI", func(t *testing.T) {
		_, err := server.handleRunResource(ctx, makeReadResourceRequest("digest://runs/"))
		require.Error(t, err)
	})
}

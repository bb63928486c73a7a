package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrRunInProgress", ErrRunInProgress},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrCacheMiss", ErrCacheMiss},
		{"ErrEmptyText", ErrEmptyText},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	err := fmt.Errorf("ingest: %w", NewStorageError("insert headline", io.ErrUnexpectedEOF))

	var storageErr *StorageError
	assert.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "insert headline", storageErr.Op)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "storage: insert headline")
}

func TestEmbeddingError_Message(t *testing.T) {
	err := NewEmbeddingError("abc", ErrEmptyText)
	assert.Equal(t, "embedding abc: empty text", err.Error())
	assert.True(t, errors.Is(err, ErrEmptyText))

	anon := NewEmbeddingError("", ErrEmbeddingUnavailable)
	assert.Equal(t, "embedding: embedding service unavailable", anon.Error())
}

func TestClusteringError_Unwrap(t *testing.T) {
	err := NewClusteringError("validate", ErrDimensionMismatch)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "clustering: validate")
}

func TestSummarizationError_Message(t *testing.T) {
	clusterErr := NewSummarizationError(3, 2, ErrRateLimited)
	assert.Equal(t, "summarization of cluster 3 failed after 2 attempt(s): rate limited", clusterErr.Error())

	execErr := NewSummarizationError(ExecutiveClusterID, 1, io.EOF)
	assert.Contains(t, execErr.Error(), "executive summary")
	assert.True(t, errors.Is(execErr, io.EOF))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"storage", NewStorageError("load", io.EOF), true},
		{"clustering", NewClusteringError("validate", ErrDimensionMismatch), true},
		{"embedding", NewEmbeddingError("x", ErrEmptyText), false},
		{"summarization", NewSummarizationError(0, 3, io.EOF), false},
		{"wrapped summarization", fmt.Errorf("step: %w", NewSummarizationError(0, 3, io.EOF)), false},
		{"unexpected", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRunInProgress indicates a pipeline run is already active.
	ErrRunInProgress = errors.New("pipeline run in progress")

	// ErrLLMUnavailable indicates the text-generation service cannot be used.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service cannot be used.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCacheMiss indicates a cache lookup found nothing.
	ErrCacheMiss = errors.New("cache miss")

	// ErrEmptyText indicates a headline had no text left after normalisation.
	ErrEmptyText = errors.New("empty text")

	// ErrDimensionMismatch indicates vectors of different lengths were mixed.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// StorageError is an I/O failure in the storage layer. It is fatal to a run.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a StorageError for the named operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// EmbeddingError is a failure to embed one headline. It is recoverable:
// the headline is skipped and the run continues.
type EmbeddingError struct {
	HeadlineID string
	Err        error
}

// NewEmbeddingError wraps err as an EmbeddingError for a headline.
func NewEmbeddingError(headlineID string, err error) *EmbeddingError {
	return &EmbeddingError{HeadlineID: headlineID, Err: err}
}

func (e *EmbeddingError) Error() string {
	if e.HeadlineID == "" {
		return fmt.Sprintf("embedding: %v", e.Err)
	}
	return fmt.Sprintf("embedding %s: %v", e.HeadlineID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// ClusteringError is an integrity violation in clustering input.
// It is fatal to a run.
type ClusteringError struct {
	Op  string
	Err error
}

// NewClusteringError wraps err as a ClusteringError.
func NewClusteringError(op string, err error) *ClusteringError {
	return &ClusteringError{Op: op, Err: err}
}

func (e *ClusteringError) Error() string {
	return fmt.Sprintf("clustering: %s: %v", e.Op, e.Err)
}

func (e *ClusteringError) Unwrap() error { return e.Err }

// SummarizationError is a terminal generation failure for one cluster or
// for the executive summary, after retries were exhausted. It is
// recoverable: that unit is marked unavailable.
type SummarizationError struct {
	// ClusterID is ExecutiveClusterID for the executive summary.
	ClusterID int
	Attempts  int
	Err       error
}

// NewSummarizationError wraps the last failure reason for a cluster.
func NewSummarizationError(clusterID, attempts int, err error) *SummarizationError {
	return &SummarizationError{ClusterID: clusterID, Attempts: attempts, Err: err}
}

func (e *SummarizationError) Error() string {
	unit := fmt.Sprintf("cluster %d", e.ClusterID)
	if e.ClusterID == ExecutiveClusterID {
		unit = "executive summary"
	}
	return fmt.Sprintf("summarization of %s failed after %d attempt(s): %v", unit, e.Attempts, e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err belongs to a recoverable category
// (EmbeddingError or SummarizationError).
func IsRecoverable(err error) bool {
	var embedErr *EmbeddingError
	var sumErr *SummarizationError
	return errors.As(err, &embedErr) || errors.As(err, &sumErr)
}

// IsFatal reports whether err must abort a run. Anything that is not a
// known recoverable category is treated as fatal.
func IsFatal(err error) bool {
	return err != nil && !IsRecoverable(err)
}

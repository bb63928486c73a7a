// Package hashing provides a deterministic, offline embedding service based
// on signed feature hashing of words and word bigrams.
//
// It needs no model download or network access, which makes it the default
// provider and the one used in tests. Headlines sharing vocabulary land
// close together; synonyms do not.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultDimensions = 384
	ModelName         = "hashing-v1"
)

// bigramWeight scales bigram features relative to single words.
const bigramWeight = 0.5

// EmbeddingService maps text to a fixed-size vector without any model.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder producing vectors of the
// given size. Non-positive sizes fall back to DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed hashes the text's tokens into a vector. Text with no word
// characters yields an error.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("hashing: no tokens in text")
	}

	vec := make([]float32, s.dimensions)
	for i, tok := range tokens {
		s.add(vec, tok, 1)
		if i > 0 {
			s.add(vec, tokens[i-1]+" "+tok, bigramWeight)
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in turn.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// add folds one feature into vec. The top hash bit picks the sign so
// collisions tend to cancel rather than accumulate.
func (s *EmbeddingService) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model identifier, which includes the vector size
// so cached vectors from a different size are never mixed.
func (s *EmbeddingService) ModelName() string {
	if s.dimensions == DefaultDimensions {
		return ModelName
	}
	return fmt.Sprintf("%s-%d", ModelName, s.dimensions)
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. Single-character tokens are dropped except digits.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) == 1 && !unicode.IsDigit([]rune(f)[0]) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// topicEmbedding places each text on the axis of the first topic keyword
// it contains, with a small length-derived offset so distinct texts get
// distinct vectors.
type topicEmbedding struct {
	topics    []string
	dims      int
	failTexts map[string]bool
	batchErr  error
	panicOn   string
	calls     atomic.Int32
}

func newTopicEmbedding(topics ...string) *topicEmbedding {
	return &topicEmbedding{topics: topics, dims: len(topics) + 1}
}

func (m *topicEmbedding) vector(text string) []float32 {
	v := make([]float32, m.dims)
	lower := strings.ToLower(text)
	axis := len(m.topics)
	for i, topic := range m.topics {
		if strings.Contains(lower, topic) {
			axis = i
			break
		}
	}
	v[axis] = 1
	v[(axis+1)%m.dims] = float32(len(text)%17) * 0.01
	return v
}

func (m *topicEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.failTexts[text] {
		return nil, errors.New("model refused text")
	}
	return m.vector(text), nil
}

func (m *topicEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.panicOn != "" && strings.Contains(text, m.panicOn) {
			var dims map[string]int
			dims[text] = m.dims
		}
		if m.failTexts[text] {
			return nil, errors.New("model refused batch")
		}
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *topicEmbedding) Dimensions() int              { return m.dims }
func (m *topicEmbedding) ModelName() string            { return "topic-test" }
func (m *topicEmbedding) Ping(_ context.Context) error { return nil }
func (m *topicEmbedding) Close() error                 { return nil }

// fixedEmbedding returns a preset vector per text.
type fixedEmbedding struct {
	vectors map[string][]float32
}

func (m *fixedEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := m.vectors[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v, nil
}

func (m *fixedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *fixedEmbedding) Dimensions() int              { return 0 }
func (m *fixedEmbedding) ModelName() string            { return "fixed-test" }
func (m *fixedEmbedding) Ping(_ context.Context) error { return nil }
func (m *fixedEmbedding) Close() error                 { return nil }

// mockLLM echoes the first bullet of the prompt and fails any prompt that
// contains one of failOn.
type mockLLM struct {
	mu        sync.Mutex
	failOn    []string
	failErr   error
	panicOn   string
	transient int
	calls     atomic.Int32
	prompts   []string
	block     chan struct{}
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	if m.transient > 0 {
		m.transient--
		m.mu.Unlock()
		return "", &driven.GenerationError{Provider: "mock", StatusCode: 503, Transient: true}
	}
	m.mu.Unlock()

	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if m.panicOn != "" && strings.Contains(prompt, m.panicOn) {
		var seen map[string]bool
		seen[prompt] = true
	}
	for _, f := range m.failOn {
		if strings.Contains(prompt, f) {
			if m.failErr != nil {
				return "", m.failErr
			}
			return "", &driven.GenerationError{Provider: "mock", StatusCode: 400, Body: "rejected"}
		}
	}
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "- ") {
			return "Summary: " + strings.TrimPrefix(line, "- "), nil
		}
	}
	return "Overview of the day.", nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// failingHeadlineStore returns err from every call.
type failingHeadlineStore struct {
	err error
}

func (s *failingHeadlineStore) Insert(_ context.Context, _ []domain.HeadlineRecord) (int, int, error) {
	return 0, 0, s.err
}

func (s *failingHeadlineStore) LoadRecent(_ context.Context, _ int, _ time.Duration) ([]domain.HeadlineRecord, error) {
	return nil, s.err
}

func (s *failingHeadlineStore) GetMany(_ context.Context, _ []string) (map[string]domain.HeadlineRecord, error) {
	return nil, s.err
}

func (s *failingHeadlineStore) Count(_ context.Context) (int, error) {
	return 0, s.err
}

// staticSource returns a fixed headline list.
type staticSource struct {
	name      string
	headlines []domain.RawHeadline
	err       error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(_ context.Context) ([]domain.RawHeadline, error) {
	return s.headlines, s.err
}

// stripNormaliser removes bold tags, enough to observe that a normaliser
// was applied.
type stripNormaliser struct{}

func (stripNormaliser) Normalise(text string) string {
	return strings.NewReplacer("<b>", "", "</b>", "").Replace(text)
}

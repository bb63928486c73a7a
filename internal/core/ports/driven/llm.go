package driven

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"
)

// LLMService provides text generation for cluster and executive summaries.
//
// Implementations may include:
//   - Gemini (generateContent REST API)
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
//   - Ollama (local models)
//   - The built-in keyword summariser
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// GenerationError describes a failed call to a text-generation provider.
type GenerationError struct {
	// Provider names the adapter that failed.
	Provider string

	// StatusCode is the HTTP status, or zero for transport failures.
	StatusCode int

	// Body is the (possibly truncated) response body.
	Body string

	// Transient marks failures worth retrying.
	Transient bool

	// RetryAfter is the provider's requested pause on 429 responses.
	RetryAfter time.Duration

	// Err is the underlying cause, if any.
	Err error
}

// maxErrorBody caps the response body kept on a GenerationError.
const maxErrorBody = 512

// NewHTTPGenerationError builds a GenerationError from an HTTP response.
// 429 and 5xx responses are transient.
func NewHTTPGenerationError(provider string, statusCode int, body string) *GenerationError {
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return &GenerationError{
		Provider:   provider,
		StatusCode: statusCode,
		Body:       body,
		Transient:  statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError,
	}
}

// NewResponseGenerationError builds a GenerationError from a non-OK
// response, honouring its Retry-After header.
func NewResponseGenerationError(provider string, resp *http.Response, body []byte) *GenerationError {
	genErr := NewHTTPGenerationError(provider, resp.StatusCode, string(body))
	genErr.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"))
	return genErr
}

// ParseRetryAfter reads a Retry-After header given in seconds.
// Other forms yield zero.
func ParseRetryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// NewTransportGenerationError wraps a network-level failure, which is
// always transient.
func NewTransportGenerationError(provider string, err error) *GenerationError {
	return &GenerationError{Provider: provider, Transient: true, Err: err}
}

func (e *GenerationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is a 429 from a provider, and the
// pause the provider asked for.
func IsRateLimited(err error) (bool, time.Duration) {
	var genErr *GenerationError
	if errors.As(err, &genErr) && genErr.StatusCode == http.StatusTooManyRequests {
		return true, genErr.RetryAfter
	}
	return false, 0
}

// IsTransient reports whether err is worth retrying. Context cancellation
// is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Transient
	}
	return false
}

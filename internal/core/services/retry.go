package services

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// RetryPolicy bounds retries of a failing call with exponential backoff.
type RetryPolicy struct {
	// MaxAttempts includes the first call. Values below 1 mean one attempt.
	MaxAttempts int

	// BaseBackoff is the wait before the first retry, doubled each attempt.
	BaseBackoff time.Duration

	// MaxBackoff caps a single wait; zero means uncapped.
	MaxBackoff time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Defaults to driven.IsTransient.
	Retryable func(error) bool

	// Timer waits between attempts. Defaults to a real timer.
	Timer backoff.Timer
}

// NewRetryPolicy builds a policy from configuration.
func NewRetryPolicy(s domain.RetrySettings) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: s.MaxAttempts,
		BaseBackoff: s.BackoffBase,
		MaxBackoff:  s.MaxBackoff,
	}
}

// NewBackOff returns the unjittered exponential schedule for the policy.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	if p.BaseBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxBackoff
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempts are used up. It returns the last result, the number of
// attempts made and the last error.
func Retry[T any](
	ctx context.Context,
	p RetryPolicy,
	logger *slog.Logger,
	fn func(ctx context.Context) (T, error),
) (T, int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = driven.IsTransient
	}

	var (
		attempts int
		lastErr  error
	)
	operation := func() (T, error) {
		attempts++
		result, err := fn(ctx)
		lastErr = err
		if err != nil && (ctx.Err() != nil || !retryable(err)) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}
	notify := func(err error, wait time.Duration) {
		if logger != nil {
			logger.WarnContext(ctx, "retrying call",
				"attempt", attempts,
				"max_attempts", maxAttempts,
				"backoff_ms", wait.Milliseconds(),
				"error", err)
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.NewBackOff(), uint64(maxAttempts-1)), ctx)
	result, err := backoff.RetryNotifyWithTimerAndData(operation, b, notify, p.Timer)
	if err != nil && lastErr != nil {
		err = lastErr
	}
	return result, attempts, err
}

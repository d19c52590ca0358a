// Package backoff wraps a single logical request with exponential-backoff
// retries. Transient failures are retried until success, a permanent
// classification, context cancellation, or the configured attempt ceiling.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config tunes the retry schedule.
type Config struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// MaxAttempts is the total attempt ceiling. Zero means retry without
	// bound, matching the historical behavior; deployments that cannot
	// tolerate a permanently down search engine should set a cap.
	MaxAttempts int

	// OnRetry, if set, is called before each wait with the attempt number
	// (starting at 0) and the error that triggered the retry.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns the retry schedule used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BaseDelay: 250 * time.Millisecond,
		MaxDelay:  30 * time.Second,
	}
}

// permanentError marks an error as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Retry fails immediately and
// surfaces the underlying error to the caller.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the non-retryable marker.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Delay returns the wait before retry number attempt, without jitter:
// min(MaxDelay, BaseDelay * 2^attempt). Non-decreasing in attempt.
func Delay(cfg Config, attempt int) time.Duration {
	base := cfg.BaseDelay
	if base <= 0 {
		base = DefaultConfig().BaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultConfig().MaxDelay
	}
	if attempt > 62 || base > maxDelay>>uint(attempt) {
		return maxDelay
	}
	d := base << uint(attempt)
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// jittered adds random jitter in [0, d/2) to spread concurrent retries.
func jittered(d time.Duration) time.Duration {
	if d < 2 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d/2)))
}

// Retry executes fn until it succeeds or fails permanently. Context
// cancellation aborts the loop and returns the context error.
func Retry(ctx context.Context, cfg Config, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult is Retry for operations that produce a value.
func RetryWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return zero, pe.err
		}
		if cfg.MaxAttempts > 0 && attempt+1 >= cfg.MaxAttempts {
			return zero, fmt.Errorf("gave up after %d attempts: %w", attempt+1, err)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(jittered(Delay(cfg, attempt))):
		}
	}
}

// Package resilience provides retry with backoff and error classification for
// the enrichment pipeline.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// Backoff returns the wait after a failed attempt. It receives the
	// 1-based number of the attempt that just failed. Default: LinearBackoff(500ms).
	Backoff func(attempt int) time.Duration

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry wait with attempt number and error.
	OnRetry func(attempt int, err error)
}

// LinearRetryConfig retries every error up to maxAttempts times, waiting
// base*attempt after each failed attempt.
func LinearRetryConfig(maxAttempts int, base time.Duration) RetryConfig {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return RetryConfig{
		MaxAttempts: maxAttempts,
		Backoff:     LinearBackoff(base),
		ShouldRetry: RetryAll,
	}
}

// LinearBackoff returns a schedule of base, 2*base, 3*base, ...
func LinearBackoff(base time.Duration) func(int) time.Duration {
	if base < 0 {
		base = 0
	}
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// RetryAll treats every error as retryable.
func RetryAll(error) bool { return true }

// Do executes fn with retry logic according to cfg. It retries only on
// errors accepted by ShouldRetry (IsTransient by default). Context
// cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is like Do but preserves the value from the successful call.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !shouldRetry(lastErr) {
			return zero, lastErr
		}

		// Don't wait after the last attempt.
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		if err := sleep(ctx, cfg.Backoff(attempt+1)); err != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// sleep waits for d or until ctx ends, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff == nil {
		cfg.Backoff = LinearBackoff(defaultBaseDelay)
	}
	return cfg
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(operation string, fields ...zap.Field) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			append([]zap.Field{
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.String("error_type", ClassifyError(err)),
				zap.Error(err),
			}, fields...)...,
		)
	}
}

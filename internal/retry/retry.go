// Package retry repeats an operation with exponential backoff while its
// error is classified as transient.
//
// It is used around tool process spawns, where a freshly written toolchain
// binary can briefly fail with ETXTBSY. A tool that runs and exits non-zero is
// never retried.
//
//	out, err := retry.DoValue(ctx, retry.DefaultConfig(), func() (Result, error) {
//	    return spawn()
//	}, isTransient)
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config defines the retry behavior.
type Config struct {
	// Attempts is the maximum number of calls. Values below 1 mean one call.
	Attempts int

	// InitialBackoff is the wait before the second call. It doubles on
	// every further attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration
}

// DefaultConfig returns the configuration used for tool spawns.
func DefaultConfig() Config {
	return Config{
		Attempts:       3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// ShouldRetryFunc reports whether err is worth another attempt. A nil
// ShouldRetryFunc retries every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	_, err := DoValue(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	}, shouldRetry)
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, cfg Config, fn func() (T, error), shouldRetry ShouldRetryFunc) (T, error) {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(Backoff(cfg, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := fn()
		if err == nil {
			return v, nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return zero, err
		}
		lastErr = err
	}

	if attempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Backoff returns the wait before the given attempt (1-based retry number):
// InitialBackoff * 2^(attempt-1), capped at MaxBackoff.
func Backoff(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	backoff := cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if cfg.MaxBackoff > 0 && backoff >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return backoff
}

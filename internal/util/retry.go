package util

import (
	"context"
	"strings"
	"time"
)

// RetryConfig is a fixed-interval retry policy. Lock holders release on
// their own schedule, so the pause between attempts never grows.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first (default: 3).
	MaxAttempts int

	// Delay is the pause between attempts.
	Delay time.Duration

	// IsRetryable decides whether an error is worth another attempt.
	// If nil, uses IsLockContention.
	IsRetryable func(error) bool

	// OnRetry, if set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// lockErrorPatterns are lowercase fragments of errors reported when another
// process holds a lock on a file we want to read.
var lockErrorPatterns = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"sqlite_locked",
	"locked by another process",
	"being used by another process",
	"resource temporarily unavailable",
}

// IsLockContention reports whether err looks like a transient lock held by
// another process.
func IsLockContention(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range lockErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The last error is returned on exhaustion.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = IsLockContention
	}

	var zero T
	var err error
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		var result T
		if result, err = fn(); err == nil {
			return result, nil
		}
		if !cfg.IsRetryable(err) || attempt >= cfg.MaxAttempts {
			return zero, err
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		if cfg.Delay <= 0 {
			continue
		}
		t := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}

package util

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		Delay:       time.Millisecond,
		IsRetryable: IsLockContention,
	}
}

func TestRetry_Success(t *testing.T) {
	callCount := 0
	result, err := Retry(context.Background(), fastConfig(3), func() (string, error) {
		callCount++
		return "ok", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected 'ok', got %q", result)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_LockClearsOnSecondAttempt(t *testing.T) {
	callCount := 0
	result, err := Retry(context.Background(), fastConfig(3), func() (int, error) {
		callCount++
		if callCount == 1 {
			return 0, errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result != 42 {
		t.Errorf("result = %d, want 42", result)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	callCount := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	_, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "", fmt.Errorf("attempt %d: database is locked", callCount)
	})

	if err == nil {
		t.Fatal("expected error after max attempts")
	}
	if err.Error() != "attempt 3: database is locked" {
		t.Errorf("expected last error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
	if len(retried) != 2 {
		t.Errorf("OnRetry called %d times, want 2", len(retried))
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	callCount := 0
	_, err := Retry(context.Background(), fastConfig(3), func() (string, error) {
		callCount++
		return "", errors.New("no such table: shifts")
	})

	if err == nil {
		t.Error("expected error")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", callCount)
	}
}

func TestRetry_ZeroDelay(t *testing.T) {
	callCount := 0
	cfg := RetryConfig{MaxAttempts: 2}
	_, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "", errors.New("sqlite_busy")
	})
	if err == nil || callCount != 2 {
		t.Errorf("err = %v after %d calls, want error after 2", err, callCount)
	}
}

func TestRetry_CanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 3, Delay: time.Hour, OnRetry: func(int, error) { cancel() }}

	_, err := Retry(ctx, cfg, func() (int, error) {
		return 0, errors.New("database is locked")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	_, err := Retry(ctx, fastConfig(3), func() (string, error) {
		callCount++
		return "", nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 0 {
		t.Errorf("expected no calls, got %d", callCount)
	}
}

func TestRetry_FixedDelay(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Delay: 20 * time.Millisecond}
	start := time.Now()
	_, _ = Retry(context.Background(), cfg, func() (string, error) {
		return "", errors.New("database is locked")
	})
	elapsed := time.Since(start)

	// Two sleeps between three attempts.
	if elapsed < 40*time.Millisecond {
		t.Errorf("elapsed %v, want at least 40ms", elapsed)
	}
}

func TestIsLockContention(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("Database Is Locked"), true},
		{errors.New("SQLITE_BUSY: retry later"), true},
		{errors.New("The process cannot access the file because it is being used by another process."), true},
		{errors.New("unable to open database file: out of memory (14)"), false},
		{errors.New("no such column: status"), false},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := IsLockContention(tt.err); got != tt.want {
				t.Errorf("IsLockContention(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

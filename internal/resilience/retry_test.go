package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	transient := errors.New("rate limited")
	attempts := 0

	got, err := Retry(context.Background(), fastRetryConfig(3), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", transient
		}
		return "transcript", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "transcript" {
		t.Errorf("expected transcript, got %q", got)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	transient := errors.New("server error")
	attempts := 0

	_, err := Retry(context.Background(), fastRetryConfig(3), func() (string, error) {
		attempts++
		return "", transient
	})
	if !errors.Is(err, transient) {
		t.Errorf("expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("invalid api key")
	cfg := fastRetryConfig(5)
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, fatal) }

	attempts := 0
	_, err := Retry(context.Background(), cfg, func() (int, error) {
		attempts++
		return 0, fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("non-retryable error must not be retried, got %d attempts", attempts)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, fastRetryConfig(3), func() (int, error) {
		return 0, errors.New("should not matter")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryOnRetryCallback(t *testing.T) {
	var seen []int
	cfg := fastRetryConfig(3)
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		seen = append(seen, attempt)
	}

	_ = RetryFunc(context.Background(), cfg, func() error {
		return errors.New("always fails")
	})
	if len(seen) != 2 {
		t.Errorf("expected 2 retry callbacks for 3 attempts, got %d", len(seen))
	}
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
		BackoffFactor:  2.0,
	}
	first := calculateBackoff(1, cfg)
	second := calculateBackoff(2, cfg)
	fourth := calculateBackoff(4, cfg)

	if first != 100*time.Millisecond {
		t.Errorf("expected 100ms first backoff, got %v", first)
	}
	if second != 200*time.Millisecond {
		t.Errorf("expected 200ms second backoff, got %v", second)
	}
	if fourth != 300*time.Millisecond {
		t.Errorf("expected cap at 300ms, got %v", fourth)
	}
}

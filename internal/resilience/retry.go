package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// InitialBackoff is the initial delay between retries.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig returns the policy shared by the provider clients:
// three attempts with exponential backoff and light jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry executes fn with the configured retry policy.
// Returns the result of fn or the last error if all attempts fail.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Non-retryable errors surface immediately.
		if !cfg.RetryIf(err) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt, cfg)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// calculateBackoff calculates the backoff duration for an attempt.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoffFloat := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if cfg.Jitter > 0 {
		jitterRange := backoffFloat * cfg.Jitter
		backoffFloat += (rand.Float64()*2 - 1) * jitterRange
	}

	if backoffFloat > float64(cfg.MaxBackoff) {
		backoffFloat = float64(cfg.MaxBackoff)
	}
	if backoffFloat < 0 {
		backoffFloat = float64(cfg.InitialBackoff)
	}

	return time.Duration(backoffFloat)
}

package resilience

import (
	"context"
	"errors"
	"time"
)

// Common bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for logging.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
}

// Bulkhead limits concurrent calls with a counting semaphore. The segment
// worker pool uses it to cap in-flight transcription requests.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs the given function within the bulkhead.
// Returns ErrBulkheadFull or ErrBulkheadTimeout if no slot is available.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()
	return fn()
}

// ExecuteWithResult runs a function that returns a value within bulkhead b.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	<-b.sem
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the maximum concurrent calls allowed.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}

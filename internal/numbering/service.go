package numbering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
)

// DefaultRetryAttempts bounds the increment retry loop.
const DefaultRetryAttempts = 5

// Allocator issues document numbers from an atomic counter store. It is the
// sole authority for numbers: clients never pre-reserve, and an allocated
// number is never re-issued even when the surrounding request fails.
type Allocator struct {
	counters docstore.CounterStore
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

// AllocatorOption customizes Allocator construction.
type AllocatorOption func(*Allocator)

// WithRetryAttempts overrides the bounded retry budget.
func WithRetryAttempts(attempts int) AllocatorOption {
	return func(a *Allocator) {
		if attempts > 0 {
			a.attempts = attempts
		}
	}
}

// WithRetryBackoff overrides the pause between conflicting attempts.
func WithRetryBackoff(backoff time.Duration) AllocatorOption {
	return func(a *Allocator) {
		if backoff >= 0 {
			a.backoff = backoff
		}
	}
}

// NewAllocator constructs an Allocator.
func NewAllocator(counters docstore.CounterStore, logger *slog.Logger, opts ...AllocatorOption) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Allocator{
		counters: counters,
		logger:   logger,
		attempts: DefaultRetryAttempts,
		backoff:  25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns the next number for the type's period at the reference
// date. The counter increment is durable before the number is returned;
// failures after the increment leave a gap instead of a duplicate.
func (a *Allocator) Allocate(ctx context.Context, docType docstore.Kind, ref time.Time) (string, error) {
	key, err := PeriodKey(docType, ref)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		seq, err := a.counters.Increment(ctx, string(docType), key)
		if err == nil {
			return FormatNumber(docType, ref, seq)
		}
		if !errors.Is(err, docstore.ErrConflict) {
			return "", fmt.Errorf("numbering: allocate %s/%s: %w", docType, key, err)
		}
		lastErr = err
		a.logger.Warn("counter increment conflict",
			slog.String("doc_type", string(docType)),
			slog.String("period_key", key),
			slog.Int("attempt", attempt),
		)
		if attempt == a.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.backoff * time.Duration(attempt)):
		}
	}
	return "", fmt.Errorf("%w: %s/%s after %d attempts: %v", ErrAllocationConflict, docType, key, a.attempts, lastErr)
}

// Current reports the last issued sequence for the type's period, zero when
// the counter has not been created yet.
func (a *Allocator) Current(ctx context.Context, docType docstore.Kind, ref time.Time) (int64, error) {
	key, err := PeriodKey(docType, ref)
	if err != nil {
		return 0, err
	}
	return a.counters.Current(ctx, string(docType), key)
}

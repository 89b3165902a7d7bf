package numbering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
)

func TestAllocateSequencePerDay(t *testing.T) {
	alloc := NewAllocator(docstore.NewMemoryCounterStore(), nil)
	ctx := context.Background()
	day1 := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)

	first, err := alloc.Allocate(ctx, docstore.KindInvoice, day1)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if first != "INV-2026-001" {
		t.Fatalf("first invoice of the day = %q, want INV-2026-001", first)
	}

	second, err := alloc.Allocate(ctx, docstore.KindInvoice, day1)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if second != "INV-2026-002" {
		t.Fatalf("second invoice of the day = %q, want INV-2026-002", second)
	}

	// next day resets the daily counter regardless of the previous value
	reset, err := alloc.Allocate(ctx, docstore.KindInvoice, day2)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if reset != "INV-2026-001" {
		t.Fatalf("new period must reset to 001, got %q", reset)
	}
}

func TestAllocateYearlyTypesShareTheYearCounter(t *testing.T) {
	alloc := NewAllocator(docstore.NewMemoryCounterStore(), nil)
	ctx := context.Background()

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	a, _ := alloc.Allocate(ctx, docstore.KindSalesContract, march)
	b, _ := alloc.Allocate(ctx, docstore.KindSalesContract, august)
	if a != "CTR-2026-001" || b != "CTR-2026-002" {
		t.Fatalf("yearly counter must span months: %q, %q", a, b)
	}
}

func TestAllocateConcurrentUnique(t *testing.T) {
	counters := docstore.NewMemoryCounterStore()
	alloc := NewAllocator(counters, nil)
	ctx := context.Background()
	ref := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	const n = 50
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := alloc.Allocate(ctx, docstore.KindInvoice, ref)
			if err != nil {
				t.Errorf("allocate: %v", err)
				return
			}
			results <- number
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	for number := range results {
		if seen[number] {
			t.Fatalf("duplicate number issued: %s", number)
		}
		seen[number] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct numbers, got %d", n, len(seen))
	}

	final, err := counters.Current(ctx, string(docstore.KindInvoice), "2026-02-15")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if final != n {
		t.Fatalf("counter must equal prior value + %d, got %d", n, final)
	}
}

type conflictingCounters struct {
	failures int
	calls    int
	inner    *docstore.MemoryCounterStore
}

func (c *conflictingCounters) Current(ctx context.Context, docType, periodKey string) (int64, error) {
	return c.inner.Current(ctx, docType, periodKey)
}

func (c *conflictingCounters) Increment(ctx context.Context, docType, periodKey string) (int64, error) {
	c.calls++
	if c.calls <= c.failures {
		return 0, docstore.ErrConflict
	}
	return c.inner.Increment(ctx, docType, periodKey)
}

func TestAllocateRetriesThenSucceeds(t *testing.T) {
	counters := &conflictingCounters{failures: 2, inner: docstore.NewMemoryCounterStore()}
	alloc := NewAllocator(counters, nil, WithRetryBackoff(0))

	number, err := alloc.Allocate(context.Background(), docstore.KindQuotation, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("allocate should survive transient conflicts: %v", err)
	}
	if number != "QTN-2026-001" {
		t.Fatalf("got %q", number)
	}
	if counters.calls != 3 {
		t.Fatalf("expected 3 increment attempts, got %d", counters.calls)
	}
}

func TestAllocateConflictExhaustsBudget(t *testing.T) {
	counters := &conflictingCounters{failures: 100, inner: docstore.NewMemoryCounterStore()}
	alloc := NewAllocator(counters, nil, WithRetryAttempts(3), WithRetryBackoff(0))

	_, err := alloc.Allocate(context.Background(), docstore.KindInvoice, time.Now())
	if !errors.Is(err, ErrAllocationConflict) {
		t.Fatalf("expected ErrAllocationConflict, got %v", err)
	}
	if counters.calls != 3 {
		t.Fatalf("retry budget is 3, used %d attempts", counters.calls)
	}
}

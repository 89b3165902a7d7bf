package reporting

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/money"
)

func newTestService(t *testing.T) (*Service, *docstore.MemoryStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := docstore.NewMemoryStore()
	return NewService(store, NewCache(client, time.Minute)), store
}

func seedDoc(t *testing.T, store *docstore.MemoryStore, id string, kind docstore.Kind, date time.Time, branch, currency string, grandTotal float64) {
	t.Helper()
	err := store.Put(context.Background(), &docstore.Document{
		ID:       id,
		Kind:     kind,
		Number:   "N-" + id,
		Date:     date,
		Branch:   branch,
		Currency: currency,
		Totals:   money.Totals{Subtotal: grandTotal, GrandTotal: grandTotal},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestAggregateByMonthAndQuarter(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	seedDoc(t, store, "a", docstore.KindInvoice, jan, "seoul", "KRW", 100)
	seedDoc(t, store, "b", docstore.KindInvoice, feb, "seoul", "KRW", 50)
	seedDoc(t, store, "c", docstore.KindExpenseVoucher, feb, "seoul", "KRW", 30)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	monthly, err := svc.Aggregate(ctx, Filters{GroupBy: GroupByMonth, Branch: "seoul", From: from, To: to})
	if err != nil {
		t.Fatalf("aggregate monthly: %v", err)
	}
	if len(monthly) != 2 {
		t.Fatalf("empty March must be omitted, got %d buckets: %+v", len(monthly), monthly)
	}
	if monthly[0].Period != "2026-01" || monthly[0].Sales != 100 {
		t.Fatalf("January bucket wrong: %+v", monthly[0])
	}
	if monthly[1].Period != "2026-02" || monthly[1].Sales != 50 || monthly[1].Expenses != 30 {
		t.Fatalf("February bucket wrong: %+v", monthly[1])
	}
	if monthly[1].Profit != 20 {
		t.Fatalf("February profit = %v, want 20", monthly[1].Profit)
	}

	quarterly, err := svc.Aggregate(ctx, Filters{GroupBy: GroupByQuarter, Branch: "seoul", From: from, To: to})
	if err != nil {
		t.Fatalf("aggregate quarterly: %v", err)
	}
	if len(quarterly) != 1 {
		t.Fatalf("expected single Q1 bucket, got %+v", quarterly)
	}
	if quarterly[0].Period != "2026-Q1" || quarterly[0].Sales != 150 {
		t.Fatalf("Q1 sales = %+v, want 150", quarterly[0])
	}
}

func TestAggregateZeroSalesGuardsMargin(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	seedDoc(t, store, "exp", docstore.KindExpenseVoucher, feb, "hanoi", "VND", 50)

	buckets, err := svc.Aggregate(ctx, Filters{
		GroupBy: GroupByMonth,
		Branch:  "hanoi",
		From:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %+v", buckets)
	}
	b := buckets[0]
	if b.Profit != -50 {
		t.Fatalf("profit = %v, want -50", b.Profit)
	}
	if b.ProfitMargin != 0 {
		t.Fatalf("margin with zero sales must be 0, got %v", b.ProfitMargin)
	}
}

func TestAggregateAllBranchesKeepsCurrenciesApart(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	seedDoc(t, store, "kr", docstore.KindInvoice, feb, "seoul", "KRW", 1000000)
	seedDoc(t, store, "th", docstore.KindInvoice, feb, "bangkok", "THB", 45000)

	buckets, err := svc.Aggregate(ctx, Filters{
		GroupBy: GroupByMonth,
		From:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("KRW and THB must never sum into one bucket, got %+v", buckets)
	}
	if buckets[0].Currency == buckets[1].Currency {
		t.Fatalf("expected distinct currencies, got %+v", buckets)
	}
}

func TestAggregateUsesCacheUntilBump(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	seedDoc(t, store, "a", docstore.KindInvoice, feb, "seoul", "KRW", 100)

	filters := Filters{
		GroupBy: GroupByMonth,
		Branch:  "seoul",
		From:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	first, err := svc.Aggregate(ctx, filters)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	// a write after caching is invisible until the cache version bumps
	seedDoc(t, store, "b", docstore.KindInvoice, feb, "seoul", "KRW", 900)
	cached, err := svc.Aggregate(ctx, filters)
	if err != nil {
		t.Fatalf("aggregate cached: %v", err)
	}
	if cached[0].Sales != first[0].Sales {
		t.Fatalf("expected cached result, got %+v", cached)
	}

	if err := svc.InvalidateAll(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	fresh, err := svc.Aggregate(ctx, filters)
	if err != nil {
		t.Fatalf("aggregate fresh: %v", err)
	}
	if fresh[0].Sales != 1000 {
		t.Fatalf("expected fresh sales 1000 after bump, got %+v", fresh)
	}
}

func TestAggregateRejectsUnknownGroupBy(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Aggregate(context.Background(), Filters{GroupBy: "week"})
	if err == nil {
		t.Fatal("expected error for unknown groupBy")
	}
}

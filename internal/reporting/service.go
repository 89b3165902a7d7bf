package reporting

import (
	"context"
	"fmt"
	"sort"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/money"
)

// Service computes period buckets from stored documents. Results are cached
// until a document write bumps the cache version.
type Service struct {
	store docstore.Store
	cache *Cache
}

// NewService constructs the service. cache may be nil.
func NewService(store docstore.Store, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Aggregate rolls up revenue- and cost-bearing documents in the range into
// chronological buckets. Periods without documents are omitted. Buckets are
// always split per branch and currency: an "all branches" request returns
// parallel streams, never a sum across currencies.
func (s *Service) Aggregate(ctx context.Context, filters Filters) ([]Bucket, error) {
	if filters.GroupBy != GroupByMonth && filters.GroupBy != GroupByQuarter {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroupBy, filters.GroupBy)
	}

	key, err := s.cache.BuildKey(ctx, "reports", "aggregate",
		string(filters.GroupBy), branchToken(filters.Branch),
		filters.From.UTC().Format("2006-01-02"), filters.To.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	var buckets []Bucket
	err = s.cache.FetchJSON(ctx, key, &buckets, func(ctx context.Context) (any, error) {
		return s.aggregate(ctx, filters)
	})
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (s *Service) aggregate(ctx context.Context, filters Filters) ([]Bucket, error) {
	kinds := make([]docstore.Kind, 0, len(revenueKinds)+len(expenseKinds))
	kinds = append(kinds, revenueKinds...)
	kinds = append(kinds, expenseKinds...)

	docs, err := s.store.List(ctx, docstore.ListFilter{
		Kinds:  kinds,
		From:   filters.From,
		To:     filters.To,
		Branch: filters.Branch,
	})
	if err != nil {
		return nil, fmt.Errorf("reporting: list documents: %w", err)
	}

	type bucketKey struct {
		branch   string
		currency string
		period   string
	}
	type accumulator struct {
		sales    float64
		expenses float64
		count    int
	}

	acc := make(map[bucketKey]*accumulator)
	for _, doc := range docs {
		label := periodLabel(filters.GroupBy, doc.Date)
		key := bucketKey{branch: doc.Branch, currency: doc.Currency, period: label}
		entry, ok := acc[key]
		if !ok {
			entry = &accumulator{}
			acc[key] = entry
		}
		if isRevenue(doc.Kind) {
			entry.sales += doc.Totals.GrandTotal
		} else {
			entry.expenses += doc.Totals.GrandTotal
		}
		entry.count++
	}

	buckets := make([]Bucket, 0, len(acc))
	for key, entry := range acc {
		sales := money.Round2(entry.sales)
		expenses := money.Round2(entry.expenses)
		profit := money.Round2(sales - expenses)
		margin := 0.0
		if sales != 0 {
			margin = profit / sales
		}
		buckets = append(buckets, Bucket{
			Branch:       key.branch,
			Currency:     key.currency,
			Period:       key.period,
			Sales:        sales,
			Expenses:     expenses,
			Profit:       profit,
			ProfitMargin: margin,
			Documents:    entry.count,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Branch != buckets[j].Branch {
			return buckets[i].Branch < buckets[j].Branch
		}
		if buckets[i].Currency != buckets[j].Currency {
			return buckets[i].Currency < buckets[j].Currency
		}
		return buckets[i].Period < buckets[j].Period
	})
	return buckets, nil
}

// InvalidateAll drops every cached report.
func (s *Service) InvalidateAll(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func branchToken(branch string) string {
	if branch == "" {
		return "all"
	}
	return branch
}

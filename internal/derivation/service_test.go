package derivation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/numbering"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	}
}

type bumpSpy struct {
	calls int
}

func (b *bumpSpy) Bump(ctx context.Context) error {
	b.calls++
	return nil
}

func newServiceUnderTest(t *testing.T) (*Service, *docstore.MemoryStore, *docstore.MemoryCounterStore, *bumpSpy) {
	t.Helper()
	store := docstore.NewMemoryStore()
	counters := docstore.NewMemoryCounterStore()
	allocator := numbering.NewAllocator(counters, nil)
	spy := &bumpSpy{}
	svc := NewService(store, allocator, 10, nil, WithClock(fixedClock()), WithCacheInvalidator(spy))
	return svc, store, counters, spy
}

func TestCreateFromSourceEndToEnd(t *testing.T) {
	svc, store, _, spy := newServiceUnderTest(t)
	ctx := context.Background()

	source := quotationFixture()
	require.NoError(t, store.Put(ctx, source))

	doc, err := svc.CreateFromSource(ctx, docstore.KindQuotation, source.ID, docstore.KindInvoice)
	require.NoError(t, err)
	require.Equal(t, "INV-2026-001", doc.Number)
	require.Equal(t, docstore.KindInvoice, doc.Kind)
	require.Equal(t, "bangkok", doc.Branch)
	require.Equal(t, "THB", doc.Currency)
	require.Len(t, doc.Lines, 2)
	require.Equal(t, doc.Totals.Subtotal+doc.Totals.TaxAmount, doc.Totals.GrandTotal)
	require.Equal(t, 1, spy.calls)

	stored, err := store.Get(ctx, docstore.KindInvoice, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Number, stored.Number)
	require.Equal(t, "QTN-2026-014", stored.Fields["source_number"])

	// second creation the same day continues the sequence
	second, err := svc.CreateFromSource(ctx, docstore.KindQuotation, source.ID, docstore.KindInvoice)
	require.NoError(t, err)
	require.Equal(t, "INV-2026-002", second.Number)
}

func TestCreateFromSourceDailyResetAcrossDays(t *testing.T) {
	store := docstore.NewMemoryStore()
	counters := docstore.NewMemoryCounterStore()
	allocator := numbering.NewAllocator(counters, nil)
	current := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	svc := NewService(store, allocator, 10, nil, WithClock(func() time.Time { return current }))
	ctx := context.Background()

	source := quotationFixture()
	require.NoError(t, store.Put(ctx, source))

	day1, err := svc.CreateFromSource(ctx, docstore.KindQuotation, source.ID, docstore.KindInvoice)
	require.NoError(t, err)
	require.Equal(t, "INV-2026-001", day1.Number)
	require.Equal(t, "2026-02-15", day1.PeriodKey)

	// the next day's counter resets, so the printed number repeats; both
	// documents must persist
	current = current.AddDate(0, 0, 1)
	day2, err := svc.CreateFromSource(ctx, docstore.KindQuotation, source.ID, docstore.KindInvoice)
	require.NoError(t, err)
	require.Equal(t, "INV-2026-001", day2.Number)
	require.Equal(t, "2026-02-16", day2.PeriodKey)

	stored, err := store.Get(ctx, docstore.KindInvoice, day2.ID)
	require.NoError(t, err)
	require.Equal(t, day1.Number, stored.Number)
}

func TestCreateFromSourceMissingSource(t *testing.T) {
	svc, _, _, _ := newServiceUnderTest(t)
	_, err := svc.CreateFromSource(context.Background(), docstore.KindQuotation, "nope", docstore.KindInvoice)
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

type failingPutStore struct {
	*docstore.MemoryStore
}

func (f *failingPutStore) Put(ctx context.Context, doc *docstore.Document) error {
	if doc.Kind == docstore.KindInvoice {
		return errors.New("disk full")
	}
	return f.MemoryStore.Put(ctx, doc)
}

func TestFailedPersistConsumesNumber(t *testing.T) {
	store := &failingPutStore{MemoryStore: docstore.NewMemoryStore()}
	counters := docstore.NewMemoryCounterStore()
	allocator := numbering.NewAllocator(counters, nil)
	svc := NewService(store, allocator, 10, nil, WithClock(fixedClock()))
	ctx := context.Background()

	source := quotationFixture()
	require.NoError(t, store.Put(ctx, source))

	_, err := svc.CreateFromSource(ctx, docstore.KindQuotation, source.ID, docstore.KindInvoice)
	require.Error(t, err)

	// the allocated number is gone for good: a gap, never a reuse
	current, err := counters.Current(ctx, string(docstore.KindInvoice), "2026-02-15")
	require.NoError(t, err)
	require.EqualValues(t, 1, current)
}

func TestDraftDoesNotAllocate(t *testing.T) {
	svc, store, counters, _ := newServiceUnderTest(t)
	ctx := context.Background()

	source := quotationFixture()
	require.NoError(t, store.Put(ctx, source))

	draft, err := svc.Draft(ctx, docstore.KindQuotation, source.ID, docstore.KindInvoice)
	require.NoError(t, err)
	require.NotEmpty(t, draft.Fields)

	current, err := counters.Current(ctx, string(docstore.KindInvoice), "2026-02-15")
	require.NoError(t, err)
	require.Zero(t, current)
}

func TestGetRejectsUnknownKind(t *testing.T) {
	svc, _, _, _ := newServiceUnderTest(t)
	_, err := svc.Get(context.Background(), docstore.Kind("timesheet"), "id")
	require.ErrorIs(t, err, numbering.ErrInvalidDocumentType)
}

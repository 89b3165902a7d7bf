package derivation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/numbering"
)

// Allocator is the subset of the numbering allocator the service needs.
type Allocator interface {
	Allocate(ctx context.Context, docType docstore.Kind, ref time.Time) (string, error)
}

// CacheInvalidator bumps downstream report caches after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service composes derivation, allocation, and persistence as one logical
// unit. If persistence fails after a number was allocated, the number is
// consumed: a gap is acceptable, a duplicate never is.
type Service struct {
	store       docstore.Store
	allocator   Allocator
	mapper      *Mapper
	logger      *slog.Logger
	invalidator CacheInvalidator
	now         func() time.Time
}

// ServiceOption customizes Service construction.
type ServiceOption func(*Service)

// WithCacheInvalidator wires a report cache to bump on writes.
func WithCacheInvalidator(inv CacheInvalidator) ServiceOption {
	return func(s *Service) { s.invalidator = inv }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the derivation service.
func NewService(store docstore.Store, allocator Allocator, defaultTaxRate float64, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     store,
		allocator: allocator,
		mapper:    NewMapper(defaultTaxRate),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Supported enumerates the derivation pairs.
func (s *Service) Supported() []Pair {
	return Supported()
}

// Draft loads the source and returns the derived draft without allocating
// a number or persisting anything.
func (s *Service) Draft(ctx context.Context, sourceKind docstore.Kind, sourceID string, targetKind docstore.Kind) (*Draft, error) {
	source, err := s.store.Get(ctx, sourceKind, sourceID)
	if err != nil {
		return nil, err
	}
	return s.mapper.Derive(source, targetKind)
}

// CreateFromSource derives, numbers, and persists a new document.
func (s *Service) CreateFromSource(ctx context.Context, sourceKind docstore.Kind, sourceID string, targetKind docstore.Kind) (*docstore.Document, error) {
	source, err := s.store.Get(ctx, sourceKind, sourceID)
	if err != nil {
		return nil, err
	}
	draft, err := s.mapper.Derive(source, targetKind)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	periodKey, err := numbering.PeriodKey(targetKind, now)
	if err != nil {
		return nil, err
	}
	num, err := s.allocator.Allocate(ctx, targetKind, now)
	if err != nil {
		return nil, err
	}

	fields := draft.Fields
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["note"] = draft.Note
	fields["source_kind"] = string(draft.SourceKind)
	fields["source_number"] = draft.SourceNumber

	doc := &docstore.Document{
		ID:        uuid.NewString(),
		Kind:      targetKind,
		Number:    num,
		PeriodKey: periodKey,
		Date:      now,
		Branch:    source.Branch,
		Currency:  source.Currency,
		Fields:    fields,
		Lines:     draft.Lines,
		Totals:    draft.Totals,
		CreatedAt: now,
	}
	if err := s.store.Put(ctx, doc); err != nil {
		// uniqueness over gap-free numbering: the number stays consumed
		s.logger.Warn("persist failed after allocation, number consumed",
			slog.String("number", num),
			slog.String("kind", string(targetKind)),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("derivation: persist %s: %w", num, err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump", slog.Any("error", err))
		}
	}
	return doc, nil
}

// Get exposes stored documents to the API layer.
func (s *Service) Get(ctx context.Context, kind docstore.Kind, id string) (*docstore.Document, error) {
	if !docstore.Known(kind) {
		return nil, fmt.Errorf("%w: %q", numbering.ErrInvalidDocumentType, kind)
	}
	return s.store.Get(ctx, kind, id)
}

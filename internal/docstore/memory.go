package docstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local tooling.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[Kind]map[string]Document
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[Kind]map[string]Document)}
}

func (s *MemoryStore) Get(ctx context.Context, kind Kind, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := doc
	return &copied, nil
}

func (s *MemoryStore) Put(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.docs[doc.Kind]
	if !ok {
		byID = make(map[string]Document)
		s.docs[doc.Kind] = byID
	}
	if _, exists := byID[doc.ID]; exists {
		return ErrConflict
	}
	// same composite uniqueness as the documents table: numbers repeat
	// across counter periods but never inside one
	if doc.Number != "" {
		for _, existing := range byID {
			if existing.Number == doc.Number && existing.PeriodKey == doc.PeriodKey {
				return ErrConflict
			}
		}
	}
	byID[doc.ID] = *doc
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for kind, byID := range s.docs {
		if len(filter.Kinds) > 0 && !containsKind(filter.Kinds, kind) {
			continue
		}
		for _, doc := range byID {
			if !filter.From.IsZero() && doc.Date.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && doc.Date.After(filter.To) {
				continue
			}
			if filter.Branch != "" && doc.Branch != filter.Branch {
				continue
			}
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func containsKind(kinds []Kind, kind Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// MemoryCounterStore is an in-process CounterStore. Increment holds the map
// lock for the whole read-modify-write, mirroring the atomicity the real
// stores provide.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryCounterStore constructs an empty counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]int64)}
}

func (s *MemoryCounterStore) Current(ctx context.Context, docType, periodKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[docType+":"+periodKey], nil
}

func (s *MemoryCounterStore) Increment(ctx context.Context, docType, periodKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docType + ":" + periodKey
	s.counters[key]++
	return s.counters[key], nil
}

package memorystore

import (
	"context"
	"sort"
	"sync"

	"stockgen/internal/pricing"
)

var _ pricing.Store = (*MemoryPriceStore)(nil)

// MemoryPriceStore keeps one PriceRecord per symbol in process memory.
type MemoryPriceStore struct {
	mu     sync.RWMutex
	data   map[string]pricing.PriceRecord
	nextID uint
}

func NewPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{
		data: make(map[string]pricing.PriceRecord),
	}
}

func (s *MemoryPriceStore) FindBySymbol(_ context.Context, symbol string) (*pricing.PriceRecord, error) {
	s.mu.RLock()
	rec, ok := s.data[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, pricing.ErrNotFound
	}
	return &rec, nil
}

// Upsert stores rec under its symbol. A symbol keeps the ID it was first
// stored with; new symbols get rec.ID if set, otherwise the next sequence value.
func (s *MemoryPriceStore) Upsert(_ context.Context, rec *pricing.PriceRecord) (*pricing.PriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	if existing, ok := s.data[rec.Symbol]; ok {
		stored.ID = existing.ID
	} else if stored.ID == 0 {
		s.nextID++
		stored.ID = s.nextID
	} else if stored.ID > s.nextID {
		s.nextID = stored.ID
	}
	s.data[stored.Symbol] = stored

	out := stored
	return &out, nil
}

func (s *MemoryPriceStore) DeleteBySymbol(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[symbol]; !ok {
		return pricing.ErrNotFound
	}
	delete(s.data, symbol)
	return nil
}

func (s *MemoryPriceStore) ListAll(_ context.Context) ([]pricing.PriceRecord, error) {
	s.mu.RLock()
	out := make([]pricing.PriceRecord, 0, len(s.data))
	for _, rec := range s.data {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *MemoryPriceStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	s.data = make(map[string]pricing.PriceRecord)
	s.mu.Unlock()
	return nil
}

// CountAll returns the number of stored symbols.
func (s *MemoryPriceStore) CountAll() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

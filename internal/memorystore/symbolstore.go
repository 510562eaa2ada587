package memorystore

import (
	"sync"

	"stockgen/internal/pricing"
)

// MemorySymbolStore holds the symbols the generator produces prices for, in
// the order they were added. Duplicates and blanks are ignored.
type MemorySymbolStore struct {
	mu      sync.Mutex
	symbols []string
	seen    map[string]struct{}
}

func NewSymbolStore(symbols ...string) *MemorySymbolStore {
	s := &MemorySymbolStore{
		symbols: make([]string, 0, len(symbols)),
		seen:    make(map[string]struct{}, len(symbols)),
	}
	for _, symbol := range symbols {
		s.Add(symbol)
	}
	return s
}

// Add normalizes and appends symbol. It reports whether the symbol was new.
func (s *MemorySymbolStore) Add(symbol string) bool {
	symbol = pricing.NormalizeSymbol(symbol)
	if symbol == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[symbol]; ok {
		return false
	}
	s.seen[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
	return true
}

func (s *MemorySymbolStore) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

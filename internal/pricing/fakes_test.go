package pricing

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// fakeStore is a map-backed Store that counts calls and can fail on demand.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]PriceRecord
	nextID  uint
	finds   int
	upserts int

	findErr   error
	upsertErr error

	// runs once at the start of the next FindBySymbol
	findHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]PriceRecord)}
}

func (s *fakeStore) FindBySymbol(_ context.Context, symbol string) (*PriceRecord, error) {
	s.mu.Lock()
	hook := s.findHook
	s.findHook = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	rec, ok := s.data[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *fakeStore) setFindHook(fn func()) {
	s.mu.Lock()
	s.findHook = fn
	s.mu.Unlock()
}

func (s *fakeStore) Upsert(_ context.Context, rec *PriceRecord) (*PriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	stored := *rec
	if stored.ID == 0 {
		s.nextID++
		stored.ID = s.nextID
	}
	s.data[stored.Symbol] = stored
	return &stored, nil
}

func (s *fakeStore) DeleteBySymbol(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[symbol]; !ok {
		return ErrNotFound
	}
	delete(s.data, symbol)
	return nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]PriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PriceRecord, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *fakeStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]PriceRecord)
	return nil
}

type sentMessage struct {
	channel string
	key     string
	payload []byte
}

// fakePublisher records every call.
type fakePublisher struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	panic bool
}

func (p *fakePublisher) Publish(_ context.Context, channel, key string, payload []byte) error {
	if p.panic {
		panic("publisher exploded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentMessage{channel, key, payload})
	return p.err
}

var errBoom = errors.New("boom")

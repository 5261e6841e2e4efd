package txstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/congo-pay/paycore/internal/payment"
)

type slot struct {
	mu  sync.Mutex
	rec Record
}

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]*slot
}

// NewMemory creates an in-memory store with one lock per record.
func NewMemory() Store {
	return &memoryStore{records: make(map[string]*slot)}
}

func (s *memoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	s.records[rec.ID] = &slot{rec: rec}
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Record, error) {
	sl, ok := s.slot(id)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", payment.ErrUnknownTransaction, id)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.rec, nil
}

func (s *memoryStore) Update(_ context.Context, id string, fn MutateFunc) (Record, error) {
	sl, ok := s.slot(id)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", payment.ErrUnknownTransaction, id)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	next, err := fn(sl.rec)
	if err != nil {
		return sl.rec, err
	}
	next.ID = sl.rec.ID
	sl.rec = next
	return next, nil
}

func (s *memoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *memoryStore) slot(id string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.records[id]
	return sl, ok
}

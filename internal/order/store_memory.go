package order

import (
	"context"
	"sync"

	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	orders  map[domain.OrderID]Order
	history map[domain.OrderID][]StatusHistoryEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders:  make(map[domain.OrderID]Order),
		history: make(map[domain.OrderID][]StatusHistoryEntry),
	}
}

func (s *InMemoryStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return sentinel.ErrConflict
	}
	s.orders[o.ID] = *o
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.OrderID) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (s *InMemoryStore) Update(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.orders[o.ID] = *o
	return nil
}

func (s *InMemoryStore) AppendStatusHistory(_ context.Context, entry *StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.OrderID] = append(s.history[entry.OrderID], *entry)
	return nil
}

func (s *InMemoryStore) ListStatusHistory(_ context.Context, orderID domain.OrderID) ([]*StatusHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[orderID]
	out := make([]*StatusHistoryEntry, 0, len(entries))
	for i := range entries {
		copied := entries[i]
		out = append(out, &copied)
	}
	return out, nil
}

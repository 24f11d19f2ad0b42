package lineitem

import (
	"context"
	"sort"
	"sync"

	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	items map[domain.LineItemID]LineItem
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[domain.LineItemID]LineItem)}
}

func (s *InMemoryStore) Create(_ context.Context, item *LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return sentinel.ErrConflict
	}
	s.items[item.ID] = *item
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.LineItemID) (*LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &item, nil
}

func (s *InMemoryStore) ListByOrder(_ context.Context, orderID domain.OrderID) ([]*LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*LineItem
	for _, item := range s.items {
		if item.OrderID == orderID {
			copied := item
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, item *LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.items[item.ID] = *item
	return nil
}

// Assign mirrors the postgres store's conditional update: it checks the
// stored row, not the caller's copy, so a stale caller loses the race.
func (s *InMemoryStore) Assign(_ context.Context, item *LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[item.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.AssignedDomainID != nil {
		return sentinel.ErrConflict
	}
	s.items[item.ID] = *item
	return nil
}

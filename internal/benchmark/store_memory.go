package benchmark

import (
	"context"
	"sort"
	"sync"

	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	benchmarks []Benchmark
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(_ context.Context, b *Benchmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = append(s.benchmarks, *b)
	return nil
}

func (s *InMemoryStore) ListByOrder(_ context.Context, orderID domain.OrderID) ([]*Benchmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Benchmark
	for i := range s.benchmarks {
		if s.benchmarks[i].OrderID == orderID {
			copied := s.benchmarks[i]
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Latest(_ context.Context, orderID domain.OrderID, benchmarkType Type) (*Benchmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Benchmark
	for i := range s.benchmarks {
		b := s.benchmarks[i]
		if b.OrderID != orderID || b.Type != benchmarkType {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			copied := b
			latest = &copied
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest, nil
}

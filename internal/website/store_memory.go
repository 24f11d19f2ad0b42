package website

import (
	"context"
	"sync"

	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	sites map[domain.WebsiteID]Website
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sites: make(map[domain.WebsiteID]Website)}
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.WebsiteID) (*Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &site, nil
}

func (s *InMemoryStore) FindByDomain(_ context.Context, domainName string) (*Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalized := NormalizeDomain(domainName)
	for _, site := range s.sites {
		if NormalizeDomain(site.Domain) == normalized {
			return &site, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Upsert(_ context.Context, site *Website) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = *site
	return nil
}

package negotiation

import (
	"context"
	"sort"
	"sync"

	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
)

type InMemoryGroupStore struct {
	mu     sync.RWMutex
	groups map[domain.GroupID]OrderGroup
}

func NewInMemoryGroupStore() *InMemoryGroupStore {
	return &InMemoryGroupStore{groups: make(map[domain.GroupID]OrderGroup)}
}

func (s *InMemoryGroupStore) Create(_ context.Context, group *OrderGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[group.ID]; exists {
		return sentinel.ErrConflict
	}
	s.groups[group.ID] = *group
	return nil
}

func (s *InMemoryGroupStore) Get(_ context.Context, id domain.GroupID) (*OrderGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	// Deep-copy the append-only round log so callers cannot mutate history.
	group.RequirementOverrides.SuggestionRounds = append(
		[]SuggestionRound(nil), group.RequirementOverrides.SuggestionRounds...)
	return &group, nil
}

func (s *InMemoryGroupStore) ListByOrder(_ context.Context, orderID domain.OrderID) ([]*OrderGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*OrderGroup
	for _, group := range s.groups {
		if group.OrderID == orderID {
			copied := group
			copied.RequirementOverrides.SuggestionRounds = append(
				[]SuggestionRound(nil), group.RequirementOverrides.SuggestionRounds...)
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryGroupStore) Update(_ context.Context, group *OrderGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.groups[group.ID] = *group
	return nil
}

type InMemorySubmissionStore struct {
	mu   sync.RWMutex
	subs map[domain.SubmissionID]OrderSiteSubmission
	// byLineItem indexes consumed submissions for O(1) unassign lookups.
	byLineItem map[domain.LineItemID]map[domain.SubmissionID]struct{}
}

func NewInMemorySubmissionStore() *InMemorySubmissionStore {
	return &InMemorySubmissionStore{
		subs:       make(map[domain.SubmissionID]OrderSiteSubmission),
		byLineItem: make(map[domain.LineItemID]map[domain.SubmissionID]struct{}),
	}
}

func (s *InMemorySubmissionStore) Create(_ context.Context, sub *OrderSiteSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subs[sub.ID]; exists {
		return sentinel.ErrConflict
	}
	s.subs[sub.ID] = *sub
	s.index(sub)
	return nil
}

func (s *InMemorySubmissionStore) Get(_ context.Context, id domain.SubmissionID) (*OrderSiteSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &sub, nil
}

func (s *InMemorySubmissionStore) ListByGroup(_ context.Context, groupID domain.GroupID) ([]*OrderSiteSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*OrderSiteSubmission
	for _, sub := range s.subs {
		if sub.GroupID == groupID {
			copied := sub
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemorySubmissionStore) ListByAssignedLineItem(_ context.Context, lineItemID domain.LineItemID) ([]*OrderSiteSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*OrderSiteSubmission
	for id := range s.byLineItem[lineItemID] {
		if sub, ok := s.subs[id]; ok {
			copied := sub
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemorySubmissionStore) Update(_ context.Context, sub *OrderSiteSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.subs[sub.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if old.AssignedToLineItemID != nil {
		delete(s.byLineItem[*old.AssignedToLineItemID], sub.ID)
	}
	s.subs[sub.ID] = *sub
	s.index(sub)
	return nil
}

// Consume mirrors the postgres store's conditional update: the guard checks
// the stored row, so a caller holding a stale copy gets a conflict.
func (s *InMemorySubmissionStore) Consume(_ context.Context, sub *OrderSiteSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.subs[sub.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if old.AssignedToLineItemID != nil {
		return sentinel.ErrConflict
	}
	s.subs[sub.ID] = *sub
	s.index(sub)
	return nil
}

func (s *InMemorySubmissionStore) index(sub *OrderSiteSubmission) {
	if sub.AssignedToLineItemID == nil {
		return
	}
	bucket, ok := s.byLineItem[*sub.AssignedToLineItemID]
	if !ok {
		bucket = make(map[domain.SubmissionID]struct{})
		s.byLineItem[*sub.AssignedToLineItemID] = bucket
	}
	bucket[sub.ID] = struct{}{}
}

package store

import (
	"context"
	"sort"
	"sync"

	"rollcall/internal/identity/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

// InMemory is the directory for dev mode and tests.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.PrincipalID]models.Member
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[id.PrincipalID]models.Member)}
}

func (s *InMemory) Upsert(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = *m
	return nil
}

func (s *InMemory) FindByID(_ context.Context, principalID id.PrincipalID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[principalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

// Students returns matching students ordered by name, then id.
func (s *InMemory) Students(_ context.Context, filter models.RosterFilter) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Member, 0)
	for _, m := range s.members {
		if filter.Matches(&m) {
			c := m
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

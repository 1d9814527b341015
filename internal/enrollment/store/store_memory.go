package store

import (
	"context"
	"slices"
	"sync"

	"rollcall/internal/enrollment/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

type InMemory struct {
	mu          sync.RWMutex
	enrollments map[id.PrincipalID]*models.Enrollment
}

func NewInMemory() *InMemory {
	return &InMemory{enrollments: make(map[id.PrincipalID]*models.Enrollment)}
}

// Upsert stores the enrollment, replacing any previous one for the principal.
func (s *InMemory) Upsert(_ context.Context, e *models.Enrollment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, replaced := s.enrollments[e.PrincipalID]
	s.enrollments[e.PrincipalID] = clone(e)
	return replaced, nil
}

func (s *InMemory) FindByPrincipal(_ context.Context, principalID id.PrincipalID) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[principalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func (s *InMemory) Exists(_ context.Context, principalID id.PrincipalID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.enrollments[principalID]
	return ok, nil
}

func clone(e *models.Enrollment) *models.Enrollment {
	c := *e
	c.Embedding = slices.Clone(e.Embedding)
	return &c
}

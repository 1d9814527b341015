package store

import (
	"context"
	"sync"
	"sync/atomic"

	"rollcall/internal/token/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

// InMemory keeps one atomically swapped slot per session. Readers load the
// current pointer without locking; Put publishes a fresh value.
type InMemory struct {
	slots sync.Map // id.SessionID -> *atomic.Pointer[models.Secret]
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Put(_ context.Context, secret models.Secret) error {
	v := secret
	slot, _ := s.slots.LoadOrStore(secret.SessionID, &atomic.Pointer[models.Secret]{})
	slot.(*atomic.Pointer[models.Secret]).Store(&v)
	return nil
}

func (s *InMemory) PutIfAbsent(_ context.Context, secret models.Secret) (models.Secret, error) {
	v := secret
	slot, _ := s.slots.LoadOrStore(secret.SessionID, &atomic.Pointer[models.Secret]{})
	p := slot.(*atomic.Pointer[models.Secret])
	if p.CompareAndSwap(nil, &v) {
		return secret, nil
	}
	return *p.Load(), nil
}

func (s *InMemory) Get(_ context.Context, sessionID id.SessionID) (models.Secret, error) {
	slot, ok := s.slots.Load(sessionID)
	if !ok {
		return models.Secret{}, sentinel.ErrNotFound
	}
	current := slot.(*atomic.Pointer[models.Secret]).Load()
	if current == nil {
		return models.Secret{}, sentinel.ErrNotFound
	}
	return *current, nil
}

func (s *InMemory) Delete(_ context.Context, sessionID id.SessionID) error {
	if _, loaded := s.slots.LoadAndDelete(sessionID); !loaded {
		return sentinel.ErrNotFound
	}
	return nil
}

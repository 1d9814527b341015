package store

import (
	"context"
	"sort"
	"sync"

	"rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

// InMemory is the session store for dev mode and unit tests.
//
// Each session has its own RWMutex that acts as the per-session gate:
// ledger inserts hold it shared through WithOpenSession, Close holds it
// exclusively. Lock order is entry.mu then s.mu; readers release s.mu before
// taking an entry lock.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*entry
	openKeys map[string]id.SessionID
}

type entry struct {
	mu      sync.RWMutex
	session models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{
		sessions: make(map[id.SessionID]*entry),
		openKeys: make(map[string]id.SessionID),
	}
}

// CreateIfNoOpen stores the session unless the holder already has an open
// session for the same scope.
func (s *InMemory) CreateIfNoOpen(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := session.OpenKey()
	if _, exists := s.openKeys[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.sessions[session.ID]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = &entry{session: cloneSession(session)}
	if session.IsOpen() {
		s.openKeys[key] = session.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	e := s.lookup(sessionID)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	session := cloneSession(&e.session)
	return &session, nil
}

// List returns matching sessions, most recently opened first.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Session, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	result := make([]*models.Session, 0)
	for _, e := range entries {
		e.mu.RLock()
		session := cloneSession(&e.session)
		e.mu.RUnlock()
		if filter.Matches(&session) {
			result = append(result, &session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OpenedAt.Equal(result[j].OpenedAt) {
			return result[i].OpenedAt.After(result[j].OpenedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// Execute validates and mutates a session under its exclusive lock.
// Mutations wait for in-flight WithOpenSession callbacks to finish.
func (s *InMemory) Execute(_ context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	e := s.lookup(sessionID)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validate(&e.session); err != nil {
		return nil, err
	}
	wasOpen := e.session.IsOpen()
	mutate(&e.session)
	if wasOpen && !e.session.IsOpen() {
		s.mu.Lock()
		delete(s.openKeys, e.session.OpenKey())
		s.mu.Unlock()
	}
	session := cloneSession(&e.session)
	return &session, nil
}

// WithOpenSession runs fn while holding the session's gate shared. fn never
// observes a session that closes before it returns. Returns
// sentinel.ErrInvalidState when the session is already closed.
func (s *InMemory) WithOpenSession(ctx context.Context, sessionID id.SessionID, fn func(ctx context.Context, session *models.Session) error) error {
	e := s.lookup(sessionID)
	if e == nil {
		return sentinel.ErrNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.session.IsOpen() {
		return sentinel.ErrInvalidState
	}
	session := cloneSession(&e.session)
	return fn(ctx, &session)
}

func (s *InMemory) lookup(sessionID id.SessionID) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func cloneSession(session *models.Session) models.Session {
	c := *session
	if session.ClosedAt != nil {
		closedAt := *session.ClosedAt
		c.ClosedAt = &closedAt
	}
	return c
}

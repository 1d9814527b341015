package store

import (
	"context"
	"sort"
	"sync"

	"rollcall/internal/attendance/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

type recordKey struct {
	session   id.SessionID
	principal id.PrincipalID
}

// InMemory is the attendance ledger for dev mode and unit tests. Records are
// kept in (recorded_at, id) order so listings are a scan.
type InMemory struct {
	mu      sync.RWMutex
	keys    map[recordKey]struct{}
	ordered []*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{keys: make(map[recordKey]struct{})}
}

// Insert appends a record. Returns sentinel.ErrAlreadyUsed when the
// participant already has a record for the session.
func (s *InMemory) Insert(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{session: record.SessionID, principal: record.PrincipalID}
	if _, exists := s.keys[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.keys[key] = struct{}{}

	c := *record
	cursor := models.CursorOf(&c)
	i := sort.Search(len(s.ordered), func(i int) bool {
		return cursor.Before(s.ordered[i])
	})
	s.ordered = append(s.ordered, nil)
	copy(s.ordered[i+1:], s.ordered[i:])
	s.ordered[i] = &c
	return nil
}

func (s *InMemory) Exists(_ context.Context, sessionID id.SessionID, principalID id.PrincipalID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[recordKey{session: sessionID, principal: principalID}]
	return ok, nil
}

// List returns matching records in ascending (recorded_at, id) order, at most
// filter.Limit of them when Limit is positive.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Record, 0)
	for _, r := range s.ordered {
		if !filter.Matches(r) {
			continue
		}
		c := *r
		result = append(result, &c)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

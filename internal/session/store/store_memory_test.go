package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

type InMemorySessionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySessionStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionStoreSuite))
}

func (s *InMemorySessionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *InMemorySessionStoreSuite) newSession(holder id.PrincipalID, section string) *models.Session {
	p := id.Principal{ID: holder, Role: id.RoleFaculty}
	scope := models.Scope{DepartmentID: id.DepartmentID(uuid.MustParse("5b2b0f5e-3c55-4c61-8f0c-7d3b4b4c9a11")), Section: section}
	session, err := models.NewSession(id.NewSessionID(), p, scope, "", models.KindMorning, s.now, "secret", s.now)
	s.Require().NoError(err)
	return session
}

func (s *InMemorySessionStoreSuite) TestCreateIfNoOpen() {
	holder := id.PrincipalID(uuid.New())
	first := s.newSession(holder, "A")
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, first))

	s.ErrorIs(s.store.CreateIfNoOpen(s.ctx, s.newSession(holder, "A")), sentinel.ErrConflict)
	s.NoError(s.store.CreateIfNoOpen(s.ctx, s.newSession(holder, "B")))
	s.NoError(s.store.CreateIfNoOpen(s.ctx, s.newSession(id.PrincipalID(uuid.New()), "A")))
}

func (s *InMemorySessionStoreSuite) TestFindByIDReturnsCopy() {
	session := s.newSession(id.PrincipalID(uuid.New()), "A")
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, session))

	found, err := s.store.FindByID(s.ctx, session.ID)
	s.Require().NoError(err)
	found.Status = models.StatusClosed

	again, err := s.store.FindByID(s.ctx, session.ID)
	s.Require().NoError(err)
	s.True(again.IsOpen())

	_, err = s.store.FindByID(s.ctx, id.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySessionStoreSuite) TestExecuteReleasesOpenKey() {
	holder := id.PrincipalID(uuid.New())
	session := s.newSession(holder, "A")
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, session))

	closed, err := s.store.Execute(s.ctx, session.ID,
		func(sess *models.Session) error { return sess.CanClose(holder) },
		func(sess *models.Session) { sess.ApplyClose(s.now) },
	)
	s.Require().NoError(err)
	s.False(closed.IsOpen())

	s.NoError(s.store.CreateIfNoOpen(s.ctx, s.newSession(holder, "A")))
}

func (s *InMemorySessionStoreSuite) TestExecuteValidationFailureLeavesSession() {
	holder := id.PrincipalID(uuid.New())
	session := s.newSession(holder, "A")
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, session))

	_, err := s.store.Execute(s.ctx, session.ID,
		func(sess *models.Session) error { return sess.CanClose(id.PrincipalID(uuid.New())) },
		func(sess *models.Session) { sess.ApplyClose(s.now) },
	)
	s.Error(err)

	found, err := s.store.FindByID(s.ctx, session.ID)
	s.Require().NoError(err)
	s.True(found.IsOpen())
}

func (s *InMemorySessionStoreSuite) TestWithOpenSession() {
	holder := id.PrincipalID(uuid.New())
	session := s.newSession(holder, "A")
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, session))

	s.NoError(s.store.WithOpenSession(s.ctx, session.ID, func(context.Context, *models.Session) error { return nil }))

	_, err := s.store.Execute(s.ctx, session.ID,
		func(*models.Session) error { return nil },
		func(sess *models.Session) { sess.ApplyClose(s.now) },
	)
	s.Require().NoError(err)

	err = s.store.WithOpenSession(s.ctx, session.ID, func(context.Context, *models.Session) error { return nil })
	s.ErrorIs(err, sentinel.ErrInvalidState)

	err = s.store.WithOpenSession(s.ctx, id.NewSessionID(), func(context.Context, *models.Session) error { return nil })
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySessionStoreSuite) TestListFiltersAndOrders() {
	holder := id.PrincipalID(uuid.New())
	older := s.newSession(holder, "A")
	newer := s.newSession(holder, "B")
	newer.OpenedAt = s.now.Add(time.Minute)
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, older))
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, newer))
	s.Require().NoError(s.store.CreateIfNoOpen(s.ctx, s.newSession(id.PrincipalID(uuid.New()), "A")))

	sessions, err := s.store.List(s.ctx, models.ListFilter{HolderID: holder})
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(newer.ID, sessions[0].ID)
	s.Equal(older.ID, sessions[1].ID)

	sessions, err = s.store.List(s.ctx, models.ListFilter{Section: "A"})
	s.Require().NoError(err)
	s.Len(sessions, 2)
}

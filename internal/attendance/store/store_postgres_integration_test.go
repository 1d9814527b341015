//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/attendance/models"
	"rollcall/internal/attendance/store"
	sessionmodels "rollcall/internal/session/models"
	sessionstore "rollcall/internal/session/store"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	sessions *sessionstore.PostgresStore
	store    *store.PostgresStore
	session  *sessionmodels.Session
	now      time.Time
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.sessions = sessionstore.NewPostgres(s.postgres.DB)
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresLedgerSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "attendance_records", "sessions"))

	holder := id.Principal{ID: id.PrincipalID(uuid.New()), Role: id.RoleFaculty}
	session, err := sessionmodels.NewSession(id.NewSessionID(), holder, sessionmodels.Scope{DepartmentID: id.DepartmentID(uuid.New())}, "Optics", sessionmodels.KindMorning, s.now, "secret", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.CreateIfNoOpen(ctx, session))
	s.session = session
}

func (s *PostgresLedgerSuite) record(principal id.PrincipalID, offset time.Duration) *models.Record {
	confidence := 0.91
	r, err := models.NewRecord(s.session, principal, models.MethodFace, s.now.Add(offset), models.Metadata{ClientIP: "10.1.1.1", Device: "Firefox on Linux", Confidence: &confidence})
	s.Require().NoError(err)
	return r
}

func (s *PostgresLedgerSuite) TestInsertAndList() {
	ctx := context.Background()
	r := s.record(id.PrincipalID(uuid.New()), time.Minute)
	s.Require().NoError(s.store.Insert(ctx, r))

	records, err := s.store.List(ctx, models.Filter{SessionID: s.session.ID})
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	got := records[0]
	s.Equal(r.ID, got.ID)
	s.True(r.RecordedAt.Equal(got.RecordedAt))
	s.Equal(s.session.HolderID, got.HolderID)
	s.Equal("Firefox on Linux", got.Device)
	s.Require().NotNil(got.Confidence)
	s.InDelta(0.91, *got.Confidence, 1e-9)
}

func (s *PostgresLedgerSuite) TestDuplicateIsAlreadyUsed() {
	ctx := context.Background()
	principal := id.PrincipalID(uuid.New())
	s.Require().NoError(s.store.Insert(ctx, s.record(principal, 0)))
	err := s.store.Insert(ctx, s.record(principal, time.Second))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresLedgerSuite) TestKeysetPagination() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Insert(ctx, s.record(id.PrincipalID(uuid.New()), time.Duration(i)*time.Second)))
	}

	first, err := s.store.List(ctx, models.Filter{SessionID: s.session.ID, Limit: 3})
	s.Require().NoError(err)
	s.Require().Len(first, 3)

	cursor := models.CursorOf(first[2])
	rest, err := s.store.List(ctx, models.Filter{SessionID: s.session.ID, After: &cursor, Limit: 3})
	s.Require().NoError(err)
	s.Len(rest, 2)
	s.True(first[2].RecordedAt.Before(rest[0].RecordedAt))
}

// Justification: the unique constraint must reject concurrent duplicates
// even when they arrive inside separate gate transactions.
func (s *PostgresLedgerSuite) TestConcurrentDuplicatesThroughGate() {
	ctx := context.Background()
	principal := id.PrincipalID(uuid.New())

	var wg sync.WaitGroup
	var inserted, duplicates atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.sessions.WithOpenSession(ctx, s.session.ID, func(ctx context.Context, session *sessionmodels.Session) error {
				r, err := models.NewRecord(session, principal, models.MethodQR, time.Now(), models.Metadata{})
				if err != nil {
					return err
				}
				return s.store.Insert(ctx, r)
			})
			switch {
			case err == nil:
				inserted.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), inserted.Load())
	s.Equal(int32(49), duplicates.Load())
}

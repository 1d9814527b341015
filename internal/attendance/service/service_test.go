package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,SessionGate,AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rollcall/internal/attendance/models"
	"rollcall/internal/attendance/service/mocks"
	attendancestore "rollcall/internal/attendance/store"
	sessionmodels "rollcall/internal/session/models"
	sessionservice "rollcall/internal/session/service"
	sessionstore "rollcall/internal/session/store"
	"rollcall/internal/token"
	tokenstore "rollcall/internal/token/store"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/requestcontext"
)

// =============================================================================
// Attendance Ledger Test Suite
// =============================================================================
// Justification for unit tests: the ledger is the authoritative uniqueness gate
// and the place where close races verification. Tests use the real session
// manager and in-memory stores so the gate is exercised, not mocked.

type LedgerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	audit    *mocks.MockAuditPublisher
	sessions *sessionservice.Service
	records  *attendancestore.InMemory
	service  *Service
	holder   id.Principal
	session  *sessionmodels.Session
	now      time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.audit = mocks.NewMockAuditPublisher(s.ctrl)
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	store := sessionstore.NewInMemory()
	s.sessions = sessionservice.New(store, token.New(tokenstore.NewInMemory(), store))
	s.records = attendancestore.NewInMemory()
	s.service = New(s.records, s.sessions,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.audit),
	)

	s.holder = id.Principal{
		ID:           id.PrincipalID(uuid.New()),
		Role:         id.RoleFaculty,
		CollegeID:    id.CollegeID(uuid.New()),
		DepartmentID: id.DepartmentID(uuid.New()),
	}
	opened, err := s.sessions.Open(s.ctx(), s.holder, sessionservice.OpenRequest{
		Scope: sessionmodels.Scope{DepartmentID: s.holder.DepartmentID},
		Kind:  sessionmodels.KindMorning,
	})
	s.Require().NoError(err)
	s.session = opened.Session
}

func (s *LedgerSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *LedgerSuite) student() id.PrincipalID {
	return id.PrincipalID(uuid.New())
}

func (s *LedgerSuite) TestRecord() {
	s.Run("first proof is recorded with session scope", func() {
		principal := s.student()
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Cond(func(e audit.Event) bool {
			return e.Action == string(audit.EventAttendanceMarked) && e.PrincipalID == principal
		})).Return(nil)

		record, err := s.service.Record(s.ctx(), s.session.ID, principal, models.MethodQR, models.Metadata{Device: "Chrome on Android"})
		s.Require().NoError(err)
		s.Equal(s.session.ID, record.SessionID)
		s.Equal(s.holder.ID, record.HolderID)
		s.Equal(models.MethodQR, record.Method)
		s.Equal(s.now, record.RecordedAt)
		s.Equal("Chrome on Android", record.Device)
	})

	s.Run("second proof is already marked", func() {
		principal := s.student()
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).Times(1)

		_, err := s.service.Record(s.ctx(), s.session.ID, principal, models.MethodQR, models.Metadata{})
		s.Require().NoError(err)
		_, err = s.service.Record(s.ctx(), s.session.ID, principal, models.MethodFace, models.Metadata{})
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyMarked))
	})

	s.Run("unknown session is not found", func() {
		_, err := s.service.Record(s.ctx(), id.NewSessionID(), s.student(), models.MethodQR, models.Metadata{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("audit failure does not fail the record", func() {
		s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
		_, err := s.service.Record(s.ctx(), s.session.ID, s.student(), models.MethodQR, models.Metadata{})
		s.NoError(err)
	})
}

func (s *LedgerSuite) TestRecord_AfterCloseIsRejected() {
	_, err := s.sessions.Close(s.ctx(), s.session.ID, s.holder.ID)
	s.Require().NoError(err)

	_, err = s.service.Record(s.ctx(), s.session.ID, s.student(), models.MethodQR, models.Metadata{})
	s.True(dErrors.HasCode(err, dErrors.CodeSessionClosed))

	all, err := s.records.List(context.Background(), models.Filter{})
	s.Require().NoError(err)
	s.Empty(all)
}

// Justification: N concurrent submissions for one participant must yield
// exactly one record and N-1 already_marked outcomes.
func (s *LedgerSuite) TestRecord_ConcurrentDuplicates() {
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	principal := s.student()

	var wg sync.WaitGroup
	var recorded, duplicates atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Record(s.ctx(), s.session.ID, principal, models.MethodQR, models.Metadata{})
			switch {
			case err == nil:
				recorded.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyMarked):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), recorded.Load())
	s.Equal(int32(49), duplicates.Load())
}

// Justification: a close racing many in-flight marks must never leave a
// record stamped after the close was accepted.
func (s *LedgerSuite) TestRecord_RacesClose() {
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	var wg sync.WaitGroup
	var recorded, rejected atomic.Int32
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.service.Record(s.ctx(), s.session.ID, s.student(), models.MethodQR, models.Metadata{})
			switch {
			case err == nil:
				recorded.Add(1)
			case dErrors.HasCode(err, dErrors.CodeSessionClosed):
				rejected.Add(1)
			}
		}()
	}
	close(start)
	_, err := s.sessions.Close(s.ctx(), s.session.ID, s.holder.ID)
	s.Require().NoError(err)
	wg.Wait()

	s.Equal(int32(50), recorded.Load()+rejected.Load())
	all, err := s.records.List(context.Background(), models.Filter{SessionID: s.session.ID})
	s.Require().NoError(err)
	s.Len(all, int(recorded.Load()))

	_, err = s.service.Record(s.ctx(), s.session.ID, s.student(), models.MethodQR, models.Metadata{})
	s.True(dErrors.HasCode(err, dErrors.CodeSessionClosed))
}

func (s *LedgerSuite) TestList_Pagination() {
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	for i := 0; i < 5; i++ {
		ctx := requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(i)*time.Second))
		_, err := s.service.Record(ctx, s.session.ID, s.student(), models.MethodQR, models.Metadata{})
		s.Require().NoError(err)
	}

	var seen []id.RecordID
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		page, err := s.service.List(s.ctx(), s.holder, Query{Cursor: cursor, Limit: 2})
		s.Require().NoError(err)
		for _, r := range page.Records {
			seen = append(seen, r.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	s.Len(seen, 5)

	_, err := s.service.List(s.ctx(), s.holder, Query{Cursor: "not-a-cursor"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *LedgerSuite) TestList_StudentsSeeOnlyTheirOwn() {
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	me := id.Principal{ID: s.student(), Role: id.RoleStudent, DepartmentID: s.holder.DepartmentID}
	_, err := s.service.Record(s.ctx(), s.session.ID, me.ID, models.MethodQR, models.Metadata{})
	s.Require().NoError(err)
	_, err = s.service.Record(s.ctx(), s.session.ID, s.student(), models.MethodQR, models.Metadata{})
	s.Require().NoError(err)

	page, err := s.service.List(s.ctx(), me, Query{Filter: models.Filter{PrincipalID: s.student()}})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 1)
	s.Equal(me.ID, page.Records[0].PrincipalID)

	other := id.Principal{ID: id.PrincipalID(uuid.New()), Role: id.RoleFaculty}
	page, err = s.service.List(s.ctx(), other, Query{})
	s.Require().NoError(err)
	s.Empty(page.Records, "faculty only see sessions they held")
}

func (s *LedgerSuite) TestStoreFailureIsInternal() {
	store := mocks.NewMockStore(s.ctrl)
	gate := mocks.NewMockSessionGate(s.ctrl)
	svc := New(store, gate)

	gate.EXPECT().WithOpenSession(gomock.Any(), s.session.ID, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ id.SessionID, fn func(context.Context, *sessionmodels.Session) error) error {
			return fn(ctx, s.session)
		})
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := svc.Record(s.ctx(), s.session.ID, s.student(), models.MethodQR, models.Metadata{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	store.EXPECT().Exists(gomock.Any(), s.session.ID, gomock.Any()).Return(false, errors.New("timeout"))
	_, err = svc.Exists(s.ctx(), s.session.ID, s.student())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *LedgerSuite) TestScopeFor() {
	college := id.CollegeID(uuid.New())
	dept := id.DepartmentID(uuid.New())
	caller := id.Principal{ID: s.student(), CollegeID: college, DepartmentID: dept}

	caller.Role = id.RoleCollegeAdmin
	s.Equal(college, ScopeFor(caller, models.Filter{}).CollegeID)

	caller.Role = id.RoleDepartmentAdmin
	s.Equal(dept, ScopeFor(caller, models.Filter{DepartmentID: id.DepartmentID(uuid.New())}).DepartmentID)

	caller.Role = id.RoleFaculty
	s.Equal(caller.ID, ScopeFor(caller, models.Filter{}).HolderID)

	caller.Role = id.RoleUniversityAdmin
	s.Equal(models.Filter{Year: "1st"}, ScopeFor(caller, models.Filter{Year: "1st"}))
}

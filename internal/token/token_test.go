package token

//go:generate mockgen -source=token.go -destination=mocks/mocks.go -package=mocks SecretStore,SessionStore

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	sessionmodels "rollcall/internal/session/models"
	sessionstore "rollcall/internal/session/store"
	"rollcall/internal/token/mocks"
	"rollcall/internal/token/models"
	"rollcall/internal/token/store"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

// =============================================================================
// Token Service Test Suite
// =============================================================================
// Justification for unit tests: secret comparison, the open-session gate,
// rotation persistence and the cold-store fallback are branch logic that
// integration tests reach only indirectly.

type TokenServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	sessions *sessionstore.InMemory
	secrets  *store.InMemory
	service  *Service
	now      time.Time
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sessions = sessionstore.NewInMemory()
	s.secrets = store.NewInMemory()
	s.service = New(s.secrets, s.sessions, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *TokenServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

// openSession stores an open session whose row carries secret.
func (s *TokenServiceSuite) openSession(secret string) *sessionmodels.Session {
	session := &sessionmodels.Session{
		ID:       id.NewSessionID(),
		HolderID: id.PrincipalID(uuid.New()),
		Scope:    sessionmodels.Scope{DepartmentID: id.DepartmentID(uuid.New())},
		Status:   sessionmodels.StatusOpen,
		Secret:   secret,
		OpenedAt: s.now,
	}
	s.Require().NoError(s.sessions.CreateIfNoOpen(s.ctx(), session))
	return session
}

func (s *TokenServiceSuite) closeSession(session *sessionmodels.Session) {
	_, err := s.sessions.Execute(s.ctx(), session.ID,
		func(sess *sessionmodels.Session) error { return sess.CanClose(sess.HolderID) },
		func(sess *sessionmodels.Session) { sess.ApplyClose(s.now) },
	)
	s.Require().NoError(err)
}

func (s *TokenServiceSuite) validate(sessionID id.SessionID, presented string) bool {
	ok, err := s.service.Validate(s.ctx(), sessionID, presented)
	s.Require().NoError(err)
	return ok
}

func (s *TokenServiceSuite) TestGenerate() {
	s.Run("encodes 256 bits without padding", func() {
		value, err := Generate()
		s.Require().NoError(err)
		raw, err := base64.RawURLEncoding.DecodeString(value)
		s.Require().NoError(err)
		s.Len(raw, SecretBytes)
	})

	s.Run("values differ across calls", func() {
		a, err := Generate()
		s.Require().NoError(err)
		b, err := Generate()
		s.Require().NoError(err)
		s.NotEqual(a, b)
	})
}

func (s *TokenServiceSuite) TestIssue() {
	sessionID := id.NewSessionID()

	secret, err := s.service.Issue(s.ctx(), sessionID)
	s.Require().NoError(err)
	s.Equal(sessionID, secret.SessionID)
	s.Equal(s.now, secret.IssuedAt)

	stored, err := s.secrets.Get(s.ctx(), sessionID)
	s.Require().NoError(err)
	s.Equal(secret.Value, stored.Value)
}

func (s *TokenServiceSuite) TestValidate() {
	s.Run("current secret on open session is accepted", func() {
		session := s.openSession("initial")
		s.Require().NoError(s.secrets.Put(s.ctx(), models.Secret{SessionID: session.ID, Value: "current"}))

		s.True(s.validate(session.ID, "current"))
	})

	s.Run("superseded secret is rejected", func() {
		session := s.openSession("initial")
		s.Require().NoError(s.secrets.Put(s.ctx(), models.Secret{SessionID: session.ID, Value: "current"}))

		s.False(s.validate(session.ID, "initial"))
	})

	s.Run("closed session rejects the correct secret", func() {
		session := s.openSession("initial")
		s.closeSession(session)

		s.False(s.validate(session.ID, "initial"))
	})

	s.Run("unknown session is rejected without error", func() {
		s.False(s.validate(id.NewSessionID(), "anything"))
	})

	s.Run("cold store falls back to the session row and repopulates", func() {
		session := s.openSession("initial")

		s.True(s.validate(session.ID, "initial"))

		stored, err := s.secrets.Get(s.ctx(), session.ID)
		s.Require().NoError(err)
		s.Equal("initial", stored.Value)
	})

	s.Run("empty presented value is rejected", func() {
		session := s.openSession("initial")

		s.False(s.validate(session.ID, ""))
	})

	s.Run("store failure surfaces as internal error", func() {
		failing := mocks.NewMockSecretStore(s.ctrl)
		svc := New(failing, s.sessions)
		session := s.openSession("initial")
		failing.EXPECT().Get(gomock.Any(), session.ID).Return(models.Secret{}, errors.New("redis down"))

		_, err := svc.Validate(s.ctx(), session.ID, "initial")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *TokenServiceSuite) TestCurrent() {
	s.Run("repopulation keeps a value stored concurrently", func() {
		secrets := mocks.NewMockSecretStore(s.ctrl)
		svc := New(secrets, s.sessions)
		session := s.openSession("initial")
		rotated := models.Secret{SessionID: session.ID, Value: "rotated"}

		secrets.EXPECT().Get(gomock.Any(), session.ID).Return(models.Secret{}, sentinel.ErrNotFound)
		secrets.EXPECT().PutIfAbsent(gomock.Any(), gomock.Any()).Return(rotated, nil)

		current, err := svc.Current(s.ctx(), session)
		s.Require().NoError(err)
		s.Equal("rotated", current.Value)
	})

	s.Run("closed session is not repopulated", func() {
		session := s.openSession("initial")
		s.closeSession(session)
		closed, err := s.sessions.FindByID(s.ctx(), session.ID)
		s.Require().NoError(err)

		_, err = s.service.Current(s.ctx(), closed)
		s.Require().NoError(err)
		_, err = s.secrets.Get(s.ctx(), session.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TokenServiceSuite) TestRotate() {
	s.Run("replaces the current secret", func() {
		session := s.openSession("initial")

		rotated, err := s.service.Rotate(s.ctx(), session.ID)
		s.Require().NoError(err)
		s.NotEqual("initial", rotated.Value)

		s.True(s.validate(session.ID, rotated.Value))
		s.False(s.validate(session.ID, "initial"))
	})

	s.Run("rotated secret survives losing the store entry", func() {
		session := s.openSession("initial")
		rotated, err := s.service.Rotate(s.ctx(), session.ID)
		s.Require().NoError(err)

		s.Require().NoError(s.secrets.Delete(s.ctx(), session.ID))

		s.False(s.validate(session.ID, "initial"))
		s.True(s.validate(session.ID, rotated.Value))

		row, err := s.sessions.FindByID(s.ctx(), session.ID)
		s.Require().NoError(err)
		s.Equal(rotated.Value, row.Secret)
	})

	s.Run("closed session cannot rotate", func() {
		session := s.openSession("initial")
		s.closeSession(session)

		_, err := s.service.Rotate(s.ctx(), session.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionClosed))

		_, err = s.secrets.Get(s.ctx(), session.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown session is not found", func() {
		_, err := s.service.Rotate(s.ctx(), id.NewSessionID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("persist failure leaves the store untouched", func() {
		sessions := mocks.NewMockSessionStore(s.ctrl)
		svc := New(s.secrets, sessions)
		sessionID := id.NewSessionID()
		sessions.EXPECT().Execute(gomock.Any(), sessionID, gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset"))

		_, err := svc.Rotate(s.ctx(), sessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		_, err = s.secrets.Get(s.ctx(), sessionID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TokenServiceSuite) TestRevoke() {
	session := s.openSession("initial")
	s.Require().NoError(s.secrets.Put(s.ctx(), models.Secret{SessionID: session.ID, Value: "current"}))

	s.Require().NoError(s.service.Revoke(s.ctx(), session.ID))
	_, err := s.secrets.Get(s.ctx(), session.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.NoError(s.service.Revoke(s.ctx(), session.ID), "revoking twice is a no-op")
}

func (s *TokenServiceSuite) TestEqual() {
	s.True(Equal("abc", "abc"))
	s.False(Equal("abc", "abd"))
	s.False(Equal("abc", "ab"))
	s.False(Equal("", ""))
}

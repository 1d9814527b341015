package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionmodels "rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

func openSession(t *testing.T) *sessionmodels.Session {
	t.Helper()
	holder := id.Principal{ID: id.PrincipalID(uuid.New()), Role: id.RoleFaculty, CollegeID: id.CollegeID(uuid.New())}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s, err := sessionmodels.NewSession(id.NewSessionID(), holder, sessionmodels.Scope{DepartmentID: id.DepartmentID(uuid.New()), Year: "1st"}, "Algebra", sessionmodels.KindMorning, now, "secret", now)
	require.NoError(t, err)
	return s
}

func TestNewRecord(t *testing.T) {
	session := openSession(t)
	principal := id.PrincipalID(uuid.New())
	now := time.Date(2026, 3, 2, 9, 5, 0, 123456789, time.UTC)

	t.Run("copies session scope and truncates time", func(t *testing.T) {
		r, err := NewRecord(session, principal, MethodQR, now, Metadata{ClientIP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, session.ID, r.SessionID)
		assert.Equal(t, session.HolderID, r.HolderID)
		assert.Equal(t, session.Scope.DepartmentID, r.DepartmentID)
		assert.Equal(t, "1st", r.Year)
		assert.Equal(t, "Algebra", r.Subject)
		assert.Equal(t, 123456000, r.RecordedAt.Nanosecond())
	})

	t.Run("closed session is rejected", func(t *testing.T) {
		closed := *session
		closed.ApplyClose(now)
		_, err := NewRecord(&closed, principal, MethodQR, now, Metadata{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("unknown method is rejected", func(t *testing.T) {
		_, err := NewRecord(session, principal, Method("sms"), now, Metadata{})
		assert.Error(t, err)
	})
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" QR ")
	require.NoError(t, err)
	assert.Equal(t, MethodQR, m)

	_, err = ParseMethod("pin")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCursor(t *testing.T) {
	r := &Record{ID: id.NewRecordID(), RecordedAt: time.Date(2026, 3, 2, 9, 0, 0, 1000, time.UTC)}

	t.Run("round trips", func(t *testing.T) {
		decoded, err := DecodeCursor(CursorOf(r).Encode())
		require.NoError(t, err)
		assert.True(t, r.RecordedAt.Equal(decoded.RecordedAt))
		assert.Equal(t, r.ID, decoded.ID)
	})

	t.Run("garbage is a validation error", func(t *testing.T) {
		_, err := DecodeCursor("%%%")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = DecodeCursor("e30")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("orders by time then id", func(t *testing.T) {
		c := CursorOf(r)
		later := &Record{ID: id.NewRecordID(), RecordedAt: r.RecordedAt.Add(time.Microsecond)}
		assert.True(t, c.Before(later))
		assert.False(t, c.Before(r))

		tie := &Record{ID: id.RecordID(uuid.MustParse("ffffffff-ffff-4fff-bfff-ffffffffffff")), RecordedAt: r.RecordedAt}
		assert.True(t, c.Before(tie))
	})
}

package models

import (
	"strings"
	"time"

	sessionmodels "rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Method is the kind of proof that was accepted.
type Method string

const (
	MethodQR   Method = "qr"
	MethodFace Method = "face"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodQR, MethodFace:
		return m, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "method must be qr or face")
	}
}

// Record is one accepted proof of presence. Records are immutable and unique
// per (SessionID, PrincipalID).
//
// The session's holder and cohort are copied onto the record so listings and
// analytics can scope records without joining sessions.
type Record struct {
	ID           id.RecordID     `json:"id"`
	SessionID    id.SessionID    `json:"session_id"`
	PrincipalID  id.PrincipalID  `json:"principal_id"`
	Method       Method          `json:"method"`
	RecordedAt   time.Time       `json:"recorded_at"`
	HolderID     id.PrincipalID  `json:"holder_id"`
	CollegeID    id.CollegeID    `json:"college_id"`
	DepartmentID id.DepartmentID `json:"department_id"`
	Year         string          `json:"year,omitempty"`
	Section      string          `json:"section,omitempty"`
	Subject      string          `json:"subject,omitempty"`
	ClientIP     string          `json:"client_ip,omitempty"`
	Device       string          `json:"device,omitempty"`
	Confidence   *float64        `json:"confidence,omitempty"`
}

// Metadata is request context stored alongside a record. It does not take
// part in uniqueness.
type Metadata struct {
	ClientIP   string
	Device     string
	Confidence *float64
}

// NewRecord builds a record for an open session. RecordedAt is truncated to
// microseconds so it round-trips through Postgres and pagination cursors.
func NewRecord(session *sessionmodels.Session, principalID id.PrincipalID, method Method, now time.Time, meta Metadata) (*Record, error) {
	if session == nil || !session.IsOpen() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "records require an open session")
	}
	if principalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "principal is required")
	}
	if method != MethodQR && method != MethodFace {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown method")
	}
	return &Record{
		ID:           id.NewRecordID(),
		SessionID:    session.ID,
		PrincipalID:  principalID,
		Method:       method,
		RecordedAt:   now.UTC().Truncate(time.Microsecond),
		HolderID:     session.HolderID,
		CollegeID:    session.CollegeID,
		DepartmentID: session.Scope.DepartmentID,
		Year:         session.Scope.Year,
		Section:      session.Scope.Section,
		Subject:      session.Subject,
		ClientIP:     meta.ClientIP,
		Device:       meta.Device,
		Confidence:   meta.Confidence,
	}, nil
}

// Before reports whether r sorts before the cursor position (recorded_at, id).
func (r *Record) Before(c Cursor) bool {
	if !r.RecordedAt.Equal(c.RecordedAt) {
		return r.RecordedAt.Before(c.RecordedAt)
	}
	return r.ID.String() < c.ID.String()
}

// Filter selects records. Zero values do not filter. Limit 0 returns every
// matching record.
type Filter struct {
	SessionID    id.SessionID
	PrincipalID  id.PrincipalID
	HolderID     id.PrincipalID
	CollegeID    id.CollegeID
	DepartmentID id.DepartmentID
	Year         string
	Section      string
	After        *Cursor
	Limit        int
}

func (f Filter) Matches(r *Record) bool {
	if !f.SessionID.IsNil() && r.SessionID != f.SessionID {
		return false
	}
	if !f.PrincipalID.IsNil() && r.PrincipalID != f.PrincipalID {
		return false
	}
	if !f.HolderID.IsNil() && r.HolderID != f.HolderID {
		return false
	}
	if !f.CollegeID.IsNil() && r.CollegeID != f.CollegeID {
		return false
	}
	if !f.DepartmentID.IsNil() && r.DepartmentID != f.DepartmentID {
		return false
	}
	if f.Year != "" && r.Year != f.Year {
		return false
	}
	if f.Section != "" && r.Section != f.Section {
		return false
	}
	if f.After != nil && !f.After.Before(r) {
		return false
	}
	return true
}

// Page is one slice of an ordered listing. NextCursor is empty on the last page.
type Page struct {
	Records    []*Record
	NextCursor string
}

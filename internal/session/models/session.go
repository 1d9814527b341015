package models

import (
	"strings"
	"time"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Kind is the part of the day a session belongs to.
type Kind string

const (
	KindMorning   Kind = "morning"
	KindAfternoon Kind = "afternoon"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMorning, KindAfternoon:
		return k, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "session_type must be morning or afternoon")
	}
}

// Status is the lifecycle state of a session. open -> closed is the only transition.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusOpen && next == StatusClosed
}

// Scope is the cohort a session is held for. Year and Section are optional;
// an empty value admits every student of the department at that level.
type Scope struct {
	DepartmentID id.DepartmentID `json:"department_id"`
	Year         string          `json:"year,omitempty"`
	Section      string          `json:"section,omitempty"`
}

// Key identifies the scope for the one-open-session-per-holder rule.
func (s Scope) Key() string {
	return s.DepartmentID.String() + "|" + s.Year + "|" + s.Section
}

// Admits reports whether a student belongs to the cohort.
func (s Scope) Admits(p id.Principal) bool {
	if p.DepartmentID != s.DepartmentID {
		return false
	}
	if s.Year != "" && s.Year != p.Year {
		return false
	}
	if s.Section != "" && s.Section != p.Section {
		return false
	}
	return true
}

// Session is a time-bounded window during which participants may prove presence.
//
// Invariants:
//   - Created open; Close is the only mutation and it is irreversible
//   - ClosedAt is nil exactly while Status is open
//   - At most one open session per (HolderID, Scope.Key()); enforced by the store
//   - Secret is the initial redemption secret; the token store holds the current one
type Session struct {
	ID        id.SessionID   `json:"id"`
	HolderID  id.PrincipalID `json:"holder_id"`
	CollegeID id.CollegeID   `json:"college_id"`
	Scope     Scope          `json:"scope"`
	Subject   string         `json:"subject"`
	Kind      Kind           `json:"session_type"`
	Date      time.Time      `json:"session_date"`
	Status    Status         `json:"status"`
	Secret    string         `json:"-"`
	OpenedAt  time.Time      `json:"opened_at"`
	ClosedAt  *time.Time     `json:"closed_at,omitempty"`
}

func NewSession(sessionID id.SessionID, holder id.Principal, scope Scope, subject string, kind Kind, date time.Time, secret string, now time.Time) (*Session, error) {
	if holder.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session holder is required")
	}
	if scope.DepartmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session department is required")
	}
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session secret is required")
	}
	if len(subject) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject must be 128 characters or less")
	}
	y, m, d := date.Date()
	return &Session{
		ID:        sessionID,
		HolderID:  holder.ID,
		CollegeID: holder.CollegeID,
		Scope:     scope,
		Subject:   subject,
		Kind:      kind,
		Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Status:    StatusOpen,
		Secret:    secret,
		OpenedAt:  now,
	}, nil
}

func (s *Session) IsOpen() bool {
	return s.Status == StatusOpen
}

// OpenKey is the uniqueness key for open sessions.
func (s *Session) OpenKey() string {
	return s.HolderID.String() + "|" + s.Scope.Key()
}

// CanClose checks whether the session may transition to closed.
// Use with ApplyClose in Execute callbacks.
func (s *Session) CanClose(caller id.PrincipalID) error {
	if s.HolderID != caller {
		return dErrors.New(dErrors.CodeForbidden, "only the session holder can close the session")
	}
	if !s.Status.CanTransitionTo(StatusClosed) {
		return dErrors.New(dErrors.CodeAlreadyClosed, "session is already closed")
	}
	return nil
}

func (s *Session) ApplyClose(now time.Time) {
	s.Status = StatusClosed
	closedAt := now
	s.ClosedAt = &closedAt
}

// Close validates and applies the transition in one call.
func (s *Session) Close(caller id.PrincipalID, now time.Time) error {
	if err := s.CanClose(caller); err != nil {
		return err
	}
	s.ApplyClose(now)
	return nil
}

// CanView reports whether a principal may read the session. Holders and
// admins above the session's department see it; students see sessions of
// their own cohort.
func (s *Session) CanView(p id.Principal) bool {
	switch p.Role {
	case id.RoleUniversityAdmin:
		return true
	case id.RoleCollegeAdmin:
		return !p.CollegeID.IsNil() && p.CollegeID == s.CollegeID
	case id.RoleDepartmentAdmin:
		return p.ID == s.HolderID || p.DepartmentID == s.Scope.DepartmentID
	case id.RoleFaculty:
		return p.ID == s.HolderID
	case id.RoleStudent:
		return s.Scope.Admits(p)
	default:
		return false
	}
}

// IsHolder reports whether p opened the session.
func (s *Session) IsHolder(p id.PrincipalID) bool {
	return s.HolderID == p
}

// ListFilter narrows session listings. Zero values do not filter.
type ListFilter struct {
	HolderID     id.PrincipalID
	CollegeID    id.CollegeID
	DepartmentID id.DepartmentID
	Year         string
	Section      string
	Status       Status
	// CohortOnly matches sessions a student of Year/Section may attend: sessions
	// whose year/section is unset or equal to the filter value.
	CohortOnly bool
}

// FilterFor scopes a listing to what the caller may see. Explicit
// department/year/section narrowing from the request is kept where the role
// allows it.
func FilterFor(caller id.Principal, requested ListFilter) ListFilter {
	f := requested
	f.HolderID = id.PrincipalID{}
	f.CohortOnly = false
	switch caller.Role {
	case id.RoleUniversityAdmin:
	case id.RoleCollegeAdmin:
		f.CollegeID = caller.CollegeID
	case id.RoleDepartmentAdmin:
		f.DepartmentID = caller.DepartmentID
	case id.RoleFaculty:
		f.HolderID = caller.ID
	case id.RoleStudent:
		f.CollegeID = id.CollegeID{}
		f.DepartmentID = caller.DepartmentID
		f.Year = caller.Year
		f.Section = caller.Section
		f.CohortOnly = true
	}
	return f
}

func (f ListFilter) Matches(s *Session) bool {
	if !f.HolderID.IsNil() && s.HolderID != f.HolderID {
		return false
	}
	if !f.CollegeID.IsNil() && s.CollegeID != f.CollegeID {
		return false
	}
	if !f.DepartmentID.IsNil() && s.Scope.DepartmentID != f.DepartmentID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.CohortOnly {
		if s.Scope.Year != "" && s.Scope.Year != f.Year {
			return false
		}
		if s.Scope.Section != "" && s.Scope.Section != f.Section {
			return false
		}
		return true
	}
	if f.Year != "" && s.Scope.Year != f.Year {
		return false
	}
	if f.Section != "" && s.Scope.Section != f.Section {
		return false
	}
	return true
}

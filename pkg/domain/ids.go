// Package domain holds the typed identifiers shared across bounded contexts.
//
// Each identifier wraps a UUID so that a session id can never be passed where a
// principal id is expected. Parse functions are the trust boundary: they reject
// empty, malformed and nil UUIDs with CodeInvalidInput.
package domain

import (
	"github.com/google/uuid"

	dErrors "rollcall/pkg/domain-errors"
)

type (
	PrincipalID  uuid.UUID
	SessionID    uuid.UUID
	RecordID     uuid.UUID
	EnrollmentID uuid.UUID
	CollegeID    uuid.UUID
	DepartmentID uuid.UUID
)

func (id PrincipalID) String() string  { return uuid.UUID(id).String() }
func (id SessionID) String() string    { return uuid.UUID(id).String() }
func (id RecordID) String() string     { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string { return uuid.UUID(id).String() }
func (id CollegeID) String() string    { return uuid.UUID(id).String() }
func (id DepartmentID) String() string { return uuid.UUID(id).String() }

func (id PrincipalID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CollegeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders identifiers in canonical UUID form in JSON and logs.
func (id PrincipalID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id EnrollmentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CollegeID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id DepartmentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *PrincipalID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SessionID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecordID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EnrollmentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CollegeID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DepartmentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func NewSessionID() SessionID       { return SessionID(uuid.New()) }
func NewRecordID() RecordID         { return RecordID(uuid.New()) }
func NewEnrollmentID() EnrollmentID { return EnrollmentID(uuid.New()) }

func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := parseUUID(s, "principal ID")
	return PrincipalID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session ID")
	return SessionID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record ID")
	return RecordID(u), err
}

func ParseCollegeID(s string) (CollegeID, error) {
	u, err := parseUUID(s, "college ID")
	return CollegeID(u), err
}

func ParseDepartmentID(s string) (DepartmentID, error) {
	u, err := parseUUID(s, "department ID")
	return DepartmentID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

package models

import (
	"time"

	id "rollcall/pkg/domain"
)

// Member is a principal the directory has seen, as last described by its
// bearer token.
type Member struct {
	id.Principal
	UpdatedAt time.Time
}

// RosterFilter selects students. Zero values do not filter.
type RosterFilter struct {
	CollegeID    id.CollegeID
	DepartmentID id.DepartmentID
	Year         string
	Section      string
}

func (f RosterFilter) Matches(m *Member) bool {
	if m.Role != id.RoleStudent {
		return false
	}
	if !f.CollegeID.IsNil() && m.CollegeID != f.CollegeID {
		return false
	}
	if !f.DepartmentID.IsNil() && m.DepartmentID != f.DepartmentID {
		return false
	}
	if f.Year != "" && m.Year != f.Year {
		return false
	}
	if f.Section != "" && m.Section != f.Section {
		return false
	}
	return true
}

package domain

import (
	dErrors "rollcall/pkg/domain-errors"
)

// Role is the caller's position in the academic hierarchy.
type Role string

const (
	RoleUniversityAdmin Role = "university_admin"
	RoleCollegeAdmin    Role = "college_admin"
	RoleDepartmentAdmin Role = "department_admin"
	RoleFaculty         Role = "faculty"
	RoleStudent         Role = "student"
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleUniversityAdmin, RoleCollegeAdmin, RoleDepartmentAdmin, RoleFaculty, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// CanHoldSessions reports whether the role may open and close sessions.
func (r Role) CanHoldSessions() bool {
	return r == RoleFaculty || r == RoleDepartmentAdmin || r == RoleCollegeAdmin
}

// Principal is the authenticated caller as resolved from a bearer token.
// College, department, year and section place the caller in the hierarchy;
// empty values mean the level does not apply to the role.
type Principal struct {
	ID           PrincipalID
	Name         string
	Email        string
	Role         Role
	CollegeID    CollegeID
	DepartmentID DepartmentID
	Year         string
	Section      string
	Subject      string
}

func (p Principal) IsZero() bool { return p.ID.IsNil() }

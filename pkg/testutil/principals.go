package testutil

import (
	"net/http"

	"github.com/google/uuid"

	id "rollcall/pkg/domain"
	"rollcall/pkg/requestcontext"
)

// WithPrincipal does what the bearer-auth middleware does for handler tests.
func WithPrincipal(req *http.Request, p id.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// Faculty returns a faculty principal teaching in the given department.
func Faculty(college id.CollegeID, dept id.DepartmentID) id.Principal {
	return id.Principal{
		ID:           id.PrincipalID(uuid.New()),
		Name:         "Faculty " + uuid.NewString()[:8],
		Role:         id.RoleFaculty,
		CollegeID:    college,
		DepartmentID: dept,
		Subject:      "Distributed Systems",
	}
}

// Student returns a student principal placed in the given cohort.
func Student(college id.CollegeID, dept id.DepartmentID, year, section string) id.Principal {
	return id.Principal{
		ID:           id.PrincipalID(uuid.New()),
		Name:         "Student " + uuid.NewString()[:8],
		Role:         id.RoleStudent,
		CollegeID:    college,
		DepartmentID: dept,
		Year:         year,
		Section:      section,
	}
}

// NewCollege and NewDepartment mint fresh hierarchy ids.
func NewCollege() id.CollegeID       { return id.CollegeID(uuid.New()) }
func NewDepartment() id.DepartmentID { return id.DepartmentID(uuid.New()) }

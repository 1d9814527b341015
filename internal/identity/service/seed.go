package service

import (
	"github.com/google/uuid"

	id "rollcall/pkg/domain"
)

var devNamespace = uuid.MustParse("6f0c64c2-4a8e-4f65-9d0e-7f2d9b1c3a10")

func devID(name string) uuid.UUID {
	return uuid.NewSHA1(devNamespace, []byte(name))
}

// DevPrincipals is a small hierarchy for local runs: one of each admin level,
// a faculty member and three students of one cohort. IDs are stable across
// restarts.
func DevPrincipals() []id.Principal {
	college := id.CollegeID(devID("college"))
	dept := id.DepartmentID(devID("department"))
	student := func(name, section string) id.Principal {
		return id.Principal{
			ID:           id.PrincipalID(devID(name)),
			Name:         name,
			Email:        name + "@rollcall.local",
			Role:         id.RoleStudent,
			CollegeID:    college,
			DepartmentID: dept,
			Year:         "1st",
			Section:      section,
		}
	}
	return []id.Principal{
		{ID: id.PrincipalID(devID("registrar")), Name: "registrar", Email: "registrar@rollcall.local", Role: id.RoleUniversityAdmin},
		{ID: id.PrincipalID(devID("dean")), Name: "dean", Email: "dean@rollcall.local", Role: id.RoleCollegeAdmin, CollegeID: college},
		{ID: id.PrincipalID(devID("chair")), Name: "chair", Email: "chair@rollcall.local", Role: id.RoleDepartmentAdmin, CollegeID: college, DepartmentID: dept},
		{ID: id.PrincipalID(devID("lecturer")), Name: "lecturer", Email: "lecturer@rollcall.local", Role: id.RoleFaculty, CollegeID: college, DepartmentID: dept, Subject: "Algorithms"},
		student("ada", "A"),
		student("grace", "A"),
		student("linus", "B"),
	}
}

//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/identity/models"
	"rollcall/internal/identity/store"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil"
	"rollcall/pkg/testutil/containers"
)

type PostgresDirectorySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresDirectorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresDirectorySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "principals"))
}

func (s *PostgresDirectorySuite) TestUpsertAndRoster() {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	college, dept := testutil.NewCollege(), testutil.NewDepartment()

	student := testutil.Student(college, dept, "3rd", "A")
	faculty := testutil.Faculty(college, dept)
	s.Require().NoError(s.store.Upsert(ctx, &models.Member{Principal: student, UpdatedAt: now}))
	s.Require().NoError(s.store.Upsert(ctx, &models.Member{Principal: faculty, UpdatedAt: now}))

	student.Section = "B"
	s.Require().NoError(s.store.Upsert(ctx, &models.Member{Principal: student, UpdatedAt: now.Add(time.Hour)}))

	found, err := s.store.FindByID(ctx, student.ID)
	s.Require().NoError(err)
	s.Equal("B", found.Section)
	s.Equal(dept, found.DepartmentID)

	roster, err := s.store.Students(ctx, models.RosterFilter{DepartmentID: dept})
	s.Require().NoError(err)
	s.Require().Len(roster, 1, "faculty are not on the roster")
	s.Equal(student.ID, roster[0].ID)

	_, err = s.store.FindByID(ctx, testutil.Faculty(college, dept).ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

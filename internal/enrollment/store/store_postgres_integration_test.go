//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/biometric"
	"rollcall/internal/enrollment/models"
	"rollcall/internal/enrollment/store"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil/containers"
)

type PostgresEnrollmentStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresEnrollmentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresEnrollmentStoreSuite))
}

func (s *PostgresEnrollmentStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresEnrollmentStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "enrollments"))
}

func (s *PostgresEnrollmentStoreSuite) TestUpsertReplaces() {
	ctx := context.Background()
	principal := id.PrincipalID(uuid.New())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first, err := models.NewEnrollment(principal, biometric.Embedding{0.25, -0.5, 1}, now)
	s.Require().NoError(err)
	replaced, err := s.store.Upsert(ctx, first)
	s.Require().NoError(err)
	s.False(replaced)

	second, err := models.NewEnrollment(principal, biometric.Embedding{0.5, 0.5, 0}, now.Add(time.Hour))
	s.Require().NoError(err)
	replaced, err = s.store.Upsert(ctx, second)
	s.Require().NoError(err)
	s.True(replaced)

	found, err := s.store.FindByPrincipal(ctx, principal)
	s.Require().NoError(err)
	s.Equal(second.ID, found.ID)
	s.Equal(second.Embedding, found.Embedding)
	s.True(second.EnrolledAt.Equal(found.EnrolledAt))

	ok, err := s.store.Exists(ctx, principal)
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.store.FindByPrincipal(ctx, id.PrincipalID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

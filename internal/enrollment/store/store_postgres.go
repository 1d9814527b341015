package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rollcall/internal/biometric"
	"rollcall/internal/enrollment/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	txcontext "rollcall/pkg/platform/tx"
)

// PostgresStore keeps one row per principal; embeddings are REAL[] columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Exec(ctx, s.db)
}

// Upsert inserts or atomically replaces the principal's enrollment.
// xmax is non-zero on the returned row only when an existing row was updated.
func (s *PostgresStore) Upsert(ctx context.Context, e *models.Enrollment) (bool, error) {
	query := `
		INSERT INTO enrollments (principal_id, id, embedding, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (principal_id) DO UPDATE SET
			id = EXCLUDED.id,
			embedding = EXCLUDED.embedding,
			enrolled_at = EXCLUDED.enrolled_at,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax <> 0) AS replaced
	`
	var replaced bool
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(e.PrincipalID),
		uuid.UUID(e.ID),
		pq.Array([]float32(e.Embedding)),
		e.EnrolledAt,
	).Scan(&replaced)
	if err != nil {
		return false, fmt.Errorf("upsert enrollment: %w", err)
	}
	return replaced, nil
}

func (s *PostgresStore) FindByPrincipal(ctx context.Context, principalID id.PrincipalID) (*models.Enrollment, error) {
	query := `SELECT id, principal_id, embedding, enrolled_at FROM enrollments WHERE principal_id = $1`
	var (
		enrollmentID uuid.UUID
		pid          uuid.UUID
		embedding    pq.Float32Array
		e            models.Enrollment
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(principalID)).Scan(&enrollmentID, &pid, &embedding, &e.EnrolledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	e.ID = id.EnrollmentID(enrollmentID)
	e.PrincipalID = id.PrincipalID(pid)
	e.Embedding = biometric.Embedding(embedding)
	e.EnrolledAt = e.EnrolledAt.UTC()
	return &e, nil
}

func (s *PostgresStore) Exists(ctx context.Context, principalID id.PrincipalID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE principal_id = $1)`,
		uuid.UUID(principalID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

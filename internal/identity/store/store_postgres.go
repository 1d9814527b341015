package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rollcall/internal/identity/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	txcontext "rollcall/pkg/platform/tx"
)

// PostgresStore keeps the principals table in step with bearer token claims.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Exec(ctx, s.db)
}

const memberColumns = `id, name, email, role, college_id, department_id, year, section, subject, updated_at`

func (s *PostgresStore) Upsert(ctx context.Context, m *models.Member) error {
	query := `
		INSERT INTO principals (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			college_id = EXCLUDED.college_id,
			department_id = EXCLUDED.department_id,
			year = EXCLUDED.year,
			section = EXCLUDED.section,
			subject = EXCLUDED.subject,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID),
		m.Name,
		m.Email,
		string(m.Role),
		uuid.NullUUID{UUID: uuid.UUID(m.CollegeID), Valid: !m.CollegeID.IsNil()},
		uuid.NullUUID{UUID: uuid.UUID(m.DepartmentID), Valid: !m.DepartmentID.IsNil()},
		m.Year,
		m.Section,
		m.Subject,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert principal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM principals WHERE id = $1`
	m, err := scanMember(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(principalID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) Students(ctx context.Context, filter models.RosterFilter) ([]*models.Member, error) {
	clauses := []string{"role = 'student'"}
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if !filter.CollegeID.IsNil() {
		add("college_id = $%d", uuid.UUID(filter.CollegeID))
	}
	if !filter.DepartmentID.IsNil() {
		add("department_id = $%d", uuid.UUID(filter.DepartmentID))
	}
	if filter.Year != "" {
		add("year = $%d", filter.Year)
	}
	if filter.Section != "" {
		add("section = $%d", filter.Section)
	}
	query := `SELECT ` + memberColumns + ` FROM principals WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY name, id`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan principal: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate principals: %w", err)
	}
	return members, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		principalID  uuid.UUID
		role         string
		collegeID    uuid.NullUUID
		departmentID uuid.NullUUID
		m            models.Member
	)
	if err := row.Scan(
		&principalID,
		&m.Name,
		&m.Email,
		&role,
		&collegeID,
		&departmentID,
		&m.Year,
		&m.Section,
		&m.Subject,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.ID = id.PrincipalID(principalID)
	m.Role = id.Role(role)
	if collegeID.Valid {
		m.CollegeID = id.CollegeID(collegeID.UUID)
	}
	if departmentID.Valid {
		m.DepartmentID = id.DepartmentID(departmentID.UUID)
	}
	m.UpdatedAt = m.UpdatedAt.UTC()
	return &m, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rollcall/internal/platform/postgres"
	"rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	txcontext "rollcall/pkg/platform/tx"
)

// PostgresStore persists sessions in PostgreSQL.
//
// The partial unique index sessions_one_open_per_scope enforces one open
// session per holder and cohort. WithOpenSession takes a row lock FOR SHARE;
// Execute takes it FOR UPDATE, so close waits for in-flight ledger inserts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Exec(ctx, s.db)
}

const sessionColumns = `id, holder_id, college_id, department_id, year, section, subject, kind, session_date, status, secret, opened_at, closed_at`

func (s *PostgresStore) CreateIfNoOpen(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(session.ID),
		uuid.UUID(session.HolderID),
		nullableUUID(uuid.UUID(session.CollegeID)),
		uuid.UUID(session.Scope.DepartmentID),
		session.Scope.Year,
		session.Scope.Section,
		session.Subject,
		string(session.Kind),
		session.Date,
		string(session.Status),
		session.Secret,
		session.OpenedAt,
		session.ClosedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return s.findOne(ctx, query, sessionID)
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Session, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if !filter.HolderID.IsNil() {
		add("holder_id = $%d", uuid.UUID(filter.HolderID))
	}
	if !filter.CollegeID.IsNil() {
		add("college_id = $%d", uuid.UUID(filter.CollegeID))
	}
	if !filter.DepartmentID.IsNil() {
		add("department_id = $%d", uuid.UUID(filter.DepartmentID))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.CohortOnly {
		add("(year = '' OR year = $%d)", filter.Year)
		add("(section = '' OR section = $%d)", filter.Section)
	} else {
		if filter.Year != "" {
			add("year = $%d", filter.Year)
		}
		if filter.Section != "" {
			add("section = $%d", filter.Section)
		}
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY opened_at DESC, id ASC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Execute validates and mutates a session under a row lock.
func (s *PostgresStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	var result *models.Session
	err := postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
		session, err := s.findOne(ctx, query, sessionID)
		if err != nil {
			return err
		}
		if err := validate(session); err != nil {
			return err
		}
		mutate(session)

		update := `UPDATE sessions SET status = $2, closed_at = $3, secret = $4 WHERE id = $1`
		if _, err := s.execer(ctx).ExecContext(ctx, update,
			uuid.UUID(session.ID),
			string(session.Status),
			session.ClosedAt,
			session.Secret,
		); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WithOpenSession runs fn in a transaction holding the session row FOR SHARE.
// Stores used inside fn join the transaction through the context.
func (s *PostgresStore) WithOpenSession(ctx context.Context, sessionID id.SessionID, fn func(ctx context.Context, session *models.Session) error) error {
	return postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR SHARE`
		session, err := s.findOne(ctx, query, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return sentinel.ErrInvalidState
		}
		return fn(ctx, session)
	})
}

func (s *PostgresStore) findOne(ctx context.Context, query string, sessionID id.SessionID) (*models.Session, error) {
	session, err := scanSession(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(sessionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sessionID    uuid.UUID
		holderID     uuid.UUID
		collegeID    uuid.NullUUID
		departmentID uuid.UUID
		kind         string
		status       string
		closedAt     sql.NullTime
		session      models.Session
	)
	if err := row.Scan(
		&sessionID,
		&holderID,
		&collegeID,
		&departmentID,
		&session.Scope.Year,
		&session.Scope.Section,
		&session.Subject,
		&kind,
		&session.Date,
		&status,
		&session.Secret,
		&session.OpenedAt,
		&closedAt,
	); err != nil {
		return nil, err
	}
	session.ID = id.SessionID(sessionID)
	session.HolderID = id.PrincipalID(holderID)
	if collegeID.Valid {
		session.CollegeID = id.CollegeID(collegeID.UUID)
	}
	session.Scope.DepartmentID = id.DepartmentID(departmentID)
	session.Kind = models.Kind(kind)
	session.Status = models.Status(status)
	session.Date = session.Date.UTC()
	session.OpenedAt = session.OpenedAt.UTC()
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		session.ClosedAt = &t
	}
	return &session, nil
}

func nullableUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

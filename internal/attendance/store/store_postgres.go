package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rollcall/internal/attendance/models"
	"rollcall/internal/platform/postgres"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	txcontext "rollcall/pkg/platform/tx"
)

// PostgresStore persists the attendance ledger. The attendance_once_per_session
// constraint is the source of truth for uniqueness.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Exec(ctx, s.db)
}

const recordColumns = `id, session_id, principal_id, method, recorded_at, holder_id, college_id, department_id, year, section, subject, client_ip, device, confidence`

func (s *PostgresStore) Insert(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO attendance_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT ON CONSTRAINT attendance_once_per_session DO NOTHING
	`
	var confidence sql.NullFloat64
	if record.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *record.Confidence, Valid: true}
	}
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.SessionID),
		uuid.UUID(record.PrincipalID),
		string(record.Method),
		record.RecordedAt,
		uuid.UUID(record.HolderID),
		uuid.NullUUID{UUID: uuid.UUID(record.CollegeID), Valid: !record.CollegeID.IsNil()},
		uuid.UUID(record.DepartmentID),
		record.Year,
		record.Section,
		record.Subject,
		record.ClientIP,
		record.Device,
		confidence,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, sessionID id.SessionID, principalID id.PrincipalID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE session_id = $1 AND principal_id = $2)`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(sessionID), uuid.UUID(principalID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check attendance record: %w", err)
	}
	return exists, nil
}

// List uses keyset pagination on (recorded_at, id).
func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if !filter.SessionID.IsNil() {
		add("session_id = $%d", uuid.UUID(filter.SessionID))
	}
	if !filter.PrincipalID.IsNil() {
		add("principal_id = $%d", uuid.UUID(filter.PrincipalID))
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
	if filter.Year != "" {
		add("year = $%d", filter.Year)
	}
	if filter.Section != "" {
		add("section = $%d", filter.Section)
	}
	if filter.After != nil {
		args = append(args, filter.After.RecordedAt, uuid.UUID(filter.After.ID))
		clauses = append(clauses, fmt.Sprintf("(recorded_at, id) > ($%d, $%d)", len(args)-1, len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY recorded_at ASC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (*models.Record, error) {
	var (
		recordID     uuid.UUID
		sessionID    uuid.UUID
		principalID  uuid.UUID
		method       string
		holderID     uuid.UUID
		collegeID    uuid.NullUUID
		departmentID uuid.UUID
		confidence   sql.NullFloat64
		record       models.Record
	)
	if err := rows.Scan(
		&recordID,
		&sessionID,
		&principalID,
		&method,
		&record.RecordedAt,
		&holderID,
		&collegeID,
		&departmentID,
		&record.Year,
		&record.Section,
		&record.Subject,
		&record.ClientIP,
		&record.Device,
		&confidence,
	); err != nil {
		return nil, err
	}
	record.ID = id.RecordID(recordID)
	record.SessionID = id.SessionID(sessionID)
	record.PrincipalID = id.PrincipalID(principalID)
	record.Method = models.Method(method)
	record.RecordedAt = record.RecordedAt.UTC()
	record.HolderID = id.PrincipalID(holderID)
	if collegeID.Valid {
		record.CollegeID = id.CollegeID(collegeID.UUID)
	}
	record.DepartmentID = id.DepartmentID(departmentID)
	if confidence.Valid {
		c := confidence.Float64
		record.Confidence = &c
	}
	return &record, nil
}

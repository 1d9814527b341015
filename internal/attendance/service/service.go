// Package service implements the attendance ledger.
package service

import (
	"context"
	"errors"
	"log/slog"

	attendancemetrics "rollcall/internal/attendance/metrics"
	"rollcall/internal/attendance/models"
	sessionmodels "rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type Store interface {
	Insert(ctx context.Context, record *models.Record) error
	Exists(ctx context.Context, sessionID id.SessionID, principalID id.PrincipalID) (bool, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Record, error)
}

// SessionGate runs fn while the session cannot transition to closed.
type SessionGate interface {
	WithOpenSession(ctx context.Context, sessionID id.SessionID, fn func(ctx context.Context, session *sessionmodels.Session) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	records        Store
	gate           SessionGate
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *attendancemetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *attendancemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(records Store, gate SessionGate, opts ...Option) *Service {
	s := &Service{records: records, gate: gate, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record inserts a record for principalID if none exists for the session.
// The open check and the insert run as one unit under the session gate, so a
// session closing concurrently either sees the record or rejects it with
// CodeSessionClosed. A second record for the same participant fails with
// CodeAlreadyMarked.
func (s *Service) Record(ctx context.Context, sessionID id.SessionID, principalID id.PrincipalID, method models.Method, meta models.Metadata) (*models.Record, error) {
	var record *models.Record
	err := s.gate.WithOpenSession(ctx, sessionID, func(ctx context.Context, session *sessionmodels.Session) error {
		r, err := models.NewRecord(session, principalID, method, requestcontext.Now(ctx), meta)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build attendance record")
		}
		if err := s.records.Insert(ctx, r); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyMarked, "attendance already marked for this session")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attendance")
		}
		// Emitted inside the gate so a transactional outbox commits with the record.
		s.emitAudit(ctx, audit.Event{
			Action:      string(audit.EventAttendanceMarked),
			PrincipalID: principalID,
			Subject:     sessionID.String(),
			Decision:    string(method),
		})
		record = r
		return nil
	})
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeAlreadyMarked):
			s.metrics.IncDuplicate()
		case dErrors.HasCode(err, dErrors.CodeSessionClosed):
			s.metrics.IncClosedReject()
		}
		return nil, err
	}

	s.metrics.IncInserted(string(method))
	s.logger.InfoContext(ctx, "attendance marked",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID.String(),
		"principal_id", principalID.String(),
		"method", string(method),
	)
	return record, nil
}

// Exists reports whether the participant already has a record for the
// session. It is an early rejection only; Record is authoritative.
func (s *Service) Exists(ctx context.Context, sessionID id.SessionID, principalID id.PrincipalID) (bool, error) {
	exists, err := s.records.Exists(ctx, sessionID, principalID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check attendance")
	}
	return exists, nil
}

// Query is a caller's listing request. Cursor is the opaque value returned as
// NextCursor by the previous page.
type Query struct {
	Filter models.Filter
	Cursor string
	Limit  int
}

// List returns one page of the records visible to caller in ascending
// (recorded_at, id) order.
func (s *Service) List(ctx context.Context, caller id.Principal, q Query) (*models.Page, error) {
	filter := ScopeFor(caller, q.Filter)
	if q.Cursor != "" {
		cursor, err := models.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		filter.After = cursor
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	filter.Limit = limit + 1

	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	page := &models.Page{Records: records}
	if len(records) > limit {
		page.Records = records[:limit]
		page.NextCursor = models.CursorOf(records[limit-1]).Encode()
	}
	return page, nil
}

// All returns every record matching filter, unpaged. Callers are expected to
// have scoped the filter already.
func (s *Service) All(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	filter.After = nil
	filter.Limit = 0
	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance")
	}
	return records, nil
}

// ScopeFor narrows requested to what caller may see. Students only see their
// own records; holders only records of sessions they held.
func ScopeFor(caller id.Principal, requested models.Filter) models.Filter {
	f := requested
	switch caller.Role {
	case id.RoleUniversityAdmin:
	case id.RoleCollegeAdmin:
		f.CollegeID = caller.CollegeID
	case id.RoleDepartmentAdmin:
		f.DepartmentID = caller.DepartmentID
	case id.RoleFaculty:
		f.HolderID = caller.ID
	default:
		f.PrincipalID = caller.ID
	}
	return f
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

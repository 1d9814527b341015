// Package service implements the session manager: opening, closing and
// reading attendance sessions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	sessionmetrics "rollcall/internal/session/metrics"
	"rollcall/internal/session/models"
	"rollcall/internal/session/qr"
	tokenmodels "rollcall/internal/token/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

type Store interface {
	CreateIfNoOpen(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Session, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
	WithOpenSession(ctx context.Context, sessionID id.SessionID, fn func(ctx context.Context, session *models.Session) error) error
}

// TokenIssuer mints and retires redemption secrets.
type TokenIssuer interface {
	Issue(ctx context.Context, sessionID id.SessionID) (tokenmodels.Secret, error)
	Current(ctx context.Context, session *models.Session) (tokenmodels.Secret, error)
	Revoke(ctx context.Context, sessionID id.SessionID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	sessions       Store
	tokens         TokenIssuer
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *sessionmetrics.Metrics
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

func WithMetrics(m *sessionmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(sessions Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{sessions: sessions, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRequest carries the caller-supplied attributes of a new session.
type OpenRequest struct {
	Scope   models.Scope
	Subject string
	Kind    models.Kind
	Date    time.Time
}

// Opened is an open session together with the material shown to participants.
type Opened struct {
	Session   *models.Session
	Token     string
	QRPayload string
	QRImage   string
}

// Open creates a session for holder and mints its initial secret.
// Returns CodeConflict when the holder already has an open session for the scope.
func (s *Service) Open(ctx context.Context, holder id.Principal, req OpenRequest) (*Opened, error) {
	if !holder.Role.CanHoldSessions() {
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot open sessions")
	}
	kind, err := models.ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	req.Kind = kind
	if req.Scope.DepartmentID.IsNil() {
		req.Scope.DepartmentID = holder.DepartmentID
	}
	req.Scope.Year = strings.TrimSpace(req.Scope.Year)
	req.Scope.Section = strings.TrimSpace(req.Scope.Section)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		req.Subject = holder.Subject
	}

	now := requestcontext.Now(ctx)
	if req.Date.IsZero() {
		req.Date = now
	}

	sessionID := id.NewSessionID()
	secret, err := s.tokens.Issue(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session, err := models.NewSession(sessionID, holder, req.Scope, req.Subject, req.Kind, req.Date, secret.Value, now)
	if err != nil {
		s.revokeQuietly(ctx, sessionID)
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.sessions.CreateIfNoOpen(ctx, session); err != nil {
		s.revokeQuietly(ctx, sessionID)
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncConflict()
			return nil, dErrors.New(dErrors.CodeConflict, "an open session already exists for this scope")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.metrics.IncOpened()
	s.emitAudit(ctx, audit.Event{
		Action:      string(audit.EventSessionOpened),
		PrincipalID: holder.ID,
		Subject:     session.ID.String(),
	})
	s.logger.InfoContext(ctx, "session opened",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", session.ID.String(),
		"holder_id", holder.ID.String(),
		"department_id", session.Scope.DepartmentID.String(),
	)

	return s.withParticipantMaterial(session, secret.Value)
}

// Close transitions the session to closed. Only the holder may close, and a
// second close fails with CodeAlreadyClosed leaving the session unchanged.
func (s *Service) Close(ctx context.Context, sessionID id.SessionID, caller id.PrincipalID) (*models.Session, error) {
	now := requestcontext.Now(ctx)
	session, err := s.sessions.Execute(ctx, sessionID,
		func(sess *models.Session) error {
			return sess.CanClose(caller)
		},
		func(sess *models.Session) {
			sess.ApplyClose(now)
		},
	)
	if err != nil {
		return nil, wrapSessionErr(err, "failed to close session")
	}

	s.revokeQuietly(ctx, sessionID)
	s.metrics.IncClosed()
	s.emitAudit(ctx, audit.Event{
		Action:      string(audit.EventSessionClosed),
		PrincipalID: caller,
		Subject:     sessionID.String(),
	})
	s.logger.InfoContext(ctx, "session closed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID.String(),
		"holder_id", caller.String(),
	)
	return session, nil
}

func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, wrapSessionErr(err, "failed to load session")
	}
	return session, nil
}

// View returns a session for caller. The holder also receives the current
// secret and QR material.
func (s *Service) View(ctx context.Context, sessionID id.SessionID, caller id.Principal) (*Opened, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.CanView(caller) {
		return nil, dErrors.New(dErrors.CodeForbidden, "session is outside the caller's scope")
	}
	if !session.IsHolder(caller.ID) || !session.IsOpen() {
		return &Opened{Session: session}, nil
	}
	current, err := s.tokens.Current(ctx, session)
	if err != nil {
		return nil, err
	}
	return s.withParticipantMaterial(session, current.Value)
}

func (s *Service) IsOpen(ctx context.Context, sessionID id.SessionID) (bool, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session.IsOpen(), nil
}

// List returns the sessions visible to caller, most recently opened first.
func (s *Service) List(ctx context.Context, caller id.Principal, requested models.ListFilter) ([]*models.Session, error) {
	if caller.Role == id.RoleStudent && caller.DepartmentID.IsNil() {
		return []*models.Session{}, nil
	}
	sessions, err := s.sessions.List(ctx, models.FilterFor(caller, requested))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	return sessions, nil
}

// WithOpenSession runs fn while the session is guaranteed to stay open.
// Returns CodeSessionClosed when it is not open.
func (s *Service) WithOpenSession(ctx context.Context, sessionID id.SessionID, fn func(ctx context.Context, session *models.Session) error) error {
	err := s.sessions.WithOpenSession(ctx, sessionID, fn)
	if err == nil {
		return nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return wrapSessionErr(err, "failed to lock session")
}

func (s *Service) withParticipantMaterial(session *models.Session, token string) (*Opened, error) {
	payload, err := qr.Encode(session.ID, token)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build qr payload")
	}
	image, err := qr.DataURI(payload, qr.DefaultSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code")
	}
	return &Opened{Session: session, Token: token, QRPayload: payload, QRImage: image}, nil
}

func (s *Service) revokeQuietly(ctx context.Context, sessionID id.SessionID) {
	if err := s.tokens.Revoke(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke session secret",
			"session_id", sessionID.String(),
			"error", err,
		)
	}
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

func wrapSessionErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeSessionClosed, "session is closed")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// Package service manages face enrollments: one reference template per principal.
package service

import (
	"context"
	"errors"
	"log/slog"

	"rollcall/internal/biometric"
	"rollcall/internal/enrollment/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

type Store interface {
	Upsert(ctx context.Context, e *models.Enrollment) (replaced bool, err error)
	FindByPrincipal(ctx context.Context, principalID id.PrincipalID) (*models.Enrollment, error)
	Exists(ctx context.Context, principalID id.PrincipalID) (bool, error)
}

// Embedder turns an uploaded image into a reference embedding.
type Embedder interface {
	Embed(ctx context.Context, image []byte) (biometric.Embedding, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	embedder       Embedder
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

func New(store Store, embedder Embedder, opts ...Option) *Service {
	s := &Service{store: store, embedder: embedder, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enroll creates or replaces the principal's template. replaced reports
// whether an earlier enrollment was overwritten.
func (s *Service) Enroll(ctx context.Context, principalID id.PrincipalID, image []byte) (*models.Enrollment, bool, error) {
	embedding, err := s.embedder.Embed(ctx, image)
	if err != nil {
		return nil, false, err
	}
	enrollment, err := models.NewEnrollment(principalID, embedding, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	replaced, err := s.store.Upsert(ctx, enrollment)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store enrollment")
	}

	action := audit.EventEnrollmentCreated
	if replaced {
		action = audit.EventEnrollmentReplaced
	}
	s.emitAudit(ctx, audit.Event{
		Action:      string(action),
		PrincipalID: principalID,
		Subject:     enrollment.ID.String(),
	})
	s.logger.InfoContext(ctx, "face enrolled",
		"request_id", requestcontext.RequestID(ctx),
		"principal_id", principalID.String(),
		"replaced", replaced,
	)
	return enrollment, replaced, nil
}

// Get returns the principal's enrollment or CodeNotEnrolled.
func (s *Service) Get(ctx context.Context, principalID id.PrincipalID) (*models.Enrollment, error) {
	enrollment, err := s.store.FindByPrincipal(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotEnrolled, "face is not enrolled")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *Service) IsEnrolled(ctx context.Context, principalID id.PrincipalID) (bool, error) {
	ok, err := s.store.Exists(ctx, principalID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check enrollment")
	}
	return ok, nil
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

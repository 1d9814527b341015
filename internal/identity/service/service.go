// Package service is the principal directory. It learns principals from
// verified bearer tokens and answers roster queries for analytics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rollcall/internal/identity/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/email"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

const defaultRefreshInterval = 10 * time.Minute

type Store interface {
	Upsert(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Member, error)
	Students(ctx context.Context, filter models.RosterFilter) ([]*models.Member, error)
}

// EnrollmentChecker reports whether a principal has a face enrollment.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, principalID id.PrincipalID) (bool, error)
}

type Service struct {
	store       Store
	enrollments EnrollmentChecker
	logger      *slog.Logger
	refresh     time.Duration

	// seen caches the last written claims per principal so Observe does not
	// write on every request.
	seen sync.Map
}

type seenEntry struct {
	principal id.Principal
	at        time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRefreshInterval sets how long unchanged claims are trusted before they
// are written again.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refresh = d
		}
	}
}

func New(store Store, enrollments EnrollmentChecker, opts ...Option) *Service {
	s := &Service{store: store, enrollments: enrollments, logger: slog.Default(), refresh: defaultRefreshInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe records the caller's claims in the directory. Tokens without a
// name get one derived from the email address.
func (s *Service) Observe(ctx context.Context, p id.Principal) error {
	if p.IsZero() {
		return nil
	}
	now := requestcontext.Now(ctx)
	if v, ok := s.seen.Load(p.ID); ok {
		entry := v.(seenEntry)
		if entry.principal == p && now.Sub(entry.at) < s.refresh {
			return nil
		}
	}
	member := &models.Member{Principal: p, UpdatedAt: now}
	if strings.TrimSpace(member.Name) == "" {
		member.Name = email.DisplayName(member.Email)
	}
	if err := s.store.Upsert(ctx, member); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record principal")
	}
	s.seen.Store(p.ID, seenEntry{principal: p, at: now})
	return nil
}

// Seed writes members unconditionally. Used for dev fixtures.
func (s *Service) Seed(ctx context.Context, principals []id.Principal) error {
	now := requestcontext.Now(ctx)
	for _, p := range principals {
		if err := s.store.Upsert(ctx, &models.Member{Principal: p, UpdatedAt: now}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed principal")
		}
	}
	s.logger.InfoContext(ctx, "directory seeded", "count", len(principals))
	return nil
}

func (s *Service) Get(ctx context.Context, principalID id.PrincipalID) (*models.Member, error) {
	m, err := s.store.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return m, nil
}

// Roster returns the students matching filter.
func (s *Service) Roster(ctx context.Context, filter models.RosterFilter) ([]*models.Member, error) {
	members, err := s.store.Students(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster")
	}
	return members, nil
}

// Me describes the caller for GET /auth/me.
type Me struct {
	Principal    id.Principal
	FaceEnrolled bool
}

func (s *Service) Me(ctx context.Context, caller id.Principal) (*Me, error) {
	enrolled, err := s.enrollments.IsEnrolled(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return &Me{Principal: caller, FaceEnrolled: enrolled}, nil
}

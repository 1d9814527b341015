// Package token mints and checks the per-session redemption secret.
//
// The current secret of each open session lives in a SecretStore that supports
// lock-free reads and single-writer replacement. The session row always holds
// the same value, written under the row lock on rotation, so a cold store is
// repopulated with the current secret and never an earlier one.
package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	sessionmodels "rollcall/internal/session/models"
	tokenmetrics "rollcall/internal/token/metrics"
	"rollcall/internal/token/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

// SecretBytes is the entropy of a redemption secret (256 bits).
const SecretBytes = 32

// SecretStore holds the current secret per session.
type SecretStore interface {
	// Put replaces the current secret. Readers observe either the old or the new
	// value, never a partial one.
	Put(ctx context.Context, secret models.Secret) error
	// PutIfAbsent stores secret only when the session has no entry and returns
	// whichever value is current afterwards.
	PutIfAbsent(ctx context.Context, secret models.Secret) (models.Secret, error)
	Get(ctx context.Context, sessionID id.SessionID) (models.Secret, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// SessionStore resolves a session's lifecycle state and persists its secret.
type SessionStore interface {
	FindByID(ctx context.Context, sessionID id.SessionID) (*sessionmodels.Session, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*sessionmodels.Session) error, mutate func(*sessionmodels.Session)) (*sessionmodels.Session, error)
}

type Service struct {
	secrets  SecretStore
	sessions SessionStore
	logger   *slog.Logger
	metrics  *tokenmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *tokenmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(secrets SecretStore, sessions SessionStore, opts ...Option) *Service {
	s := &Service{secrets: secrets, sessions: sessions, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate creates a cryptographically secure random secret encoded as
// unpadded base64url.
func Generate() (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue mints a fresh secret for the session and makes it current.
func (s *Service) Issue(ctx context.Context, sessionID id.SessionID) (models.Secret, error) {
	value, err := Generate()
	if err != nil {
		return models.Secret{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate session secret")
	}
	secret := models.Secret{SessionID: sessionID, Value: value, IssuedAt: requestcontext.Now(ctx)}
	if err := s.secrets.Put(ctx, secret); err != nil {
		return models.Secret{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session secret")
	}
	s.metrics.IncIssued()
	return secret, nil
}

// Current returns the session's current secret, falling back to the secret
// recorded on the session when the store has no entry. The repopulating write
// never replaces a value that a concurrent Rotate stored first.
func (s *Service) Current(ctx context.Context, session *sessionmodels.Session) (models.Secret, error) {
	secret, err := s.secrets.Get(ctx, session.ID)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return models.Secret{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session secret")
	}
	secret = models.Secret{SessionID: session.ID, Value: session.Secret, IssuedAt: session.OpenedAt}
	if !session.IsOpen() {
		return secret, nil
	}
	stored, err := s.secrets.PutIfAbsent(ctx, secret)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to repopulate session secret",
			"session_id", session.ID.String(),
			"error", err,
		)
		return secret, nil
	}
	return stored, nil
}

// Validate reports whether presented equals the session's current secret and
// the session is open. The comparison is constant-time.
func (s *Service) Validate(ctx context.Context, sessionID id.SessionID, presented string) (bool, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if !session.IsOpen() {
		s.metrics.IncValidation(false)
		return false, nil
	}
	current, err := s.Current(ctx, session)
	if err != nil {
		return false, err
	}
	ok := Equal(current.Value, presented)
	s.metrics.IncValidation(ok)
	return ok, nil
}

// Rotate replaces the current secret of an open session. The new value is
// written to the session row under its lock before the store is updated, so
// losing the store entry later cannot bring back a superseded secret.
func (s *Service) Rotate(ctx context.Context, sessionID id.SessionID) (models.Secret, error) {
	value, err := Generate()
	if err != nil {
		return models.Secret{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate session secret")
	}
	secret := models.Secret{SessionID: sessionID, Value: value, IssuedAt: requestcontext.Now(ctx)}

	_, err = s.sessions.Execute(ctx, sessionID,
		func(session *sessionmodels.Session) error {
			if !session.IsOpen() {
				return sentinel.ErrInvalidState
			}
			return nil
		},
		func(session *sessionmodels.Session) {
			session.Secret = value
		},
	)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return models.Secret{}, dErrors.New(dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return models.Secret{}, dErrors.New(dErrors.CodeSessionClosed, "session is closed")
	case err != nil:
		return models.Secret{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist rotated secret")
	}

	if err := s.secrets.Put(ctx, secret); err != nil {
		return models.Secret{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session secret")
	}
	s.metrics.IncRotated()
	return secret, nil
}

// Revoke drops the session's secret. Called when the session closes.
func (s *Service) Revoke(ctx context.Context, sessionID id.SessionID) error {
	if err := s.secrets.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session secret")
	}
	return nil
}

// Equal compares two secrets in constant time with respect to their contents.
func Equal(current, presented string) bool {
	if current == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(presented)) == 1
}

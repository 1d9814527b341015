package token

import (
	"context"
	"log/slog"
	"time"

	sessionmodels "rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/requestcontext"
)

// OpenSessionLister enumerates the sessions whose secrets rotate.
type OpenSessionLister interface {
	List(ctx context.Context, filter sessionmodels.ListFilter) ([]*sessionmodels.Session, error)
}

// Rotator periodically replaces the secret of every open session.
// It is only started when a rotation interval is configured.
type Rotator struct {
	tokens   *Service
	sessions OpenSessionLister
	interval time.Duration
	logger   *slog.Logger
}

func NewRotator(tokens *Service, sessions OpenSessionLister, interval time.Duration, logger *slog.Logger) *Rotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rotator{tokens: tokens, sessions: sessions, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Rotator) Run(ctx context.Context) error {
	if r.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			r.RotateOnce(requestcontext.WithTime(ctx, now.UTC()))
		}
	}
}

// RotateOnce rotates every currently open session and returns how many
// secrets were replaced. Sessions closing mid-pass are skipped.
func (r *Rotator) RotateOnce(ctx context.Context) int {
	open, err := r.sessions.List(ctx, sessionmodels.ListFilter{Status: sessionmodels.StatusOpen})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list open sessions for rotation", "error", err)
		return 0
	}
	rotated := 0
	for _, session := range open {
		if _, err := r.tokens.Rotate(ctx, session.ID); err != nil {
			r.logRotateFailure(ctx, session.ID, err)
			continue
		}
		rotated++
	}
	if rotated > 0 {
		r.logger.InfoContext(ctx, "session secrets rotated", "count", rotated)
	}
	return rotated
}

func (r *Rotator) logRotateFailure(ctx context.Context, sessionID id.SessionID, err error) {
	r.logger.WarnContext(ctx, "failed to rotate session secret",
		"session_id", sessionID.String(),
		"error", err,
	)
}

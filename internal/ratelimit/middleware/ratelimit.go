package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rollcall/internal/ratelimit/metrics"
	"rollcall/internal/ratelimit/models"
	"rollcall/internal/ratelimit/observability"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

// BucketStore is a sliding-window counter keyed by bucket name.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	buckets        BucketStore
	logger         *slog.Logger
	auditPublisher observability.AuditPublisher
	metrics        *metrics.Metrics
	disabled       bool
}

type Option func(*Middleware)

// WithDisabled turns every limit into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithAuditPublisher(publisher observability.AuditPublisher) Option {
	return func(m *Middleware) {
		m.auditPublisher = publisher
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func New(buckets BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		buckets: buckets,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// LimitMarks allows each principal at most limit mark attempts per window.
// Unauthenticated callers share a bucket per client IP. Store failures let
// the request through.
func (m *Middleware) LimitMarks(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			principalID := requestcontext.PrincipalID(ctx)
			key := models.MarkKey(principalID)
			if principalID.IsNil() {
				key = models.ClientKey(requestcontext.ClientIP(ctx))
			}

			result, err := m.buckets.Allow(ctx, key, limit, window)
			if err != nil {
				m.metrics.IncCheckFailure()
				m.logger.ErrorContext(ctx, "failed to check mark rate limit",
					"request_id", requestcontext.RequestID(ctx),
					"principal_id", principalID.String(),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncRejected("mark")
				observability.LogAudit(ctx, m.logger, m.auditPublisher, audit.EventRateLimitExceeded, principalID,
					"bucket", key,
					"reason", "mark_attempts_exceeded",
					"retry_after", result.RetryAfter,
				)
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "too many attendance attempts, try again later",
		RetryAfter:       result.RetryAfter,
	})
}

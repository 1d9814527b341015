// Package verification decides whether a proof of presence is valid for a
// participant and session, and hands accepted proofs to the attendance ledger.
package verification

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	attendancemodels "rollcall/internal/attendance/models"
	"rollcall/internal/biometric"
	enrollmentmodels "rollcall/internal/enrollment/models"
	sessionmodels "rollcall/internal/session/models"
	"rollcall/internal/session/qr"
	verificationmetrics "rollcall/internal/verification/metrics"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/middleware/metadata"
	"rollcall/pkg/requestcontext"
)

const tracerName = "rollcall/internal/verification"

// Proof is what a participant presents. Token is the scanned QR value, either
// the bare secret or the JSON payload; Image is a face sample.
type Proof struct {
	Method attendancemodels.Method
	Token  string
	Image  []byte
}

// Result describes an accepted proof.
type Result struct {
	Method     attendancemodels.Method
	Confidence *float64
}

type Sessions interface {
	Get(ctx context.Context, sessionID id.SessionID) (*sessionmodels.Session, error)
}

type Tokens interface {
	Validate(ctx context.Context, sessionID id.SessionID, presented string) (bool, error)
}

type Enrollments interface {
	Get(ctx context.Context, principalID id.PrincipalID) (*enrollmentmodels.Enrollment, error)
}

// FaceMatcher scores a sample against a reference embedding under a deadline.
type FaceMatcher interface {
	Verify(ctx context.Context, image []byte, reference biometric.Embedding) (biometric.Result, error)
}

type Ledger interface {
	Exists(ctx context.Context, sessionID id.SessionID, principalID id.PrincipalID) (bool, error)
	Record(ctx context.Context, sessionID id.SessionID, principalID id.PrincipalID, method attendancemodels.Method, meta attendancemodels.Metadata) (*attendancemodels.Record, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Gateway struct {
	sessions       Sessions
	tokens         Tokens
	enrollments    Enrollments
	matcher        FaceMatcher
	ledger         Ledger
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *verificationmetrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(g *Gateway) {
		g.auditPublisher = publisher
	}
}

func WithMetrics(m *verificationmetrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func New(sessions Sessions, tokens Tokens, enrollments Enrollments, matcher FaceMatcher, ledger Ledger, opts ...Option) *Gateway {
	g := &Gateway{
		sessions:    sessions,
		tokens:      tokens,
		enrollments: enrollments,
		matcher:     matcher,
		ledger:      ledger,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Verify checks proof for principal against the session. Checks run in order:
//
//  1. the session is open (CodeSessionClosed)
//  2. the principal is a student of the session's cohort (CodeForbidden)
//  3. the principal has no record yet (CodeAlreadyMarked, early exit only)
//  4. a token equals the current secret (CodeInvalidToken), or a face sample
//     matches the enrollment (CodeNotEnrolled, CodeBiometricMismatch,
//     CodeVerificationTimeout)
//
// Verify has no side effects on the ledger.
func (g *Gateway) Verify(ctx context.Context, sessionID id.SessionID, principal id.Principal, proof Proof) (*Result, error) {
	ctx, span := g.tracer.Start(ctx, "verification.Verify", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
		attribute.String("principal.id", principal.ID.String()),
		attribute.String("proof.method", string(proof.Method)),
	))
	defer span.End()

	result, err := g.verify(ctx, sessionID, principal, proof)
	if err != nil {
		g.reject(ctx, span, sessionID, principal.ID, proof.Method, err)
		return nil, err
	}
	g.metrics.Observe(string(proof.Method), "accepted")
	return result, nil
}

func (g *Gateway) verify(ctx context.Context, sessionID id.SessionID, principal id.Principal, proof Proof) (*Result, error) {
	session, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, dErrors.New(dErrors.CodeSessionClosed, "session is closed")
	}
	if principal.Role != id.RoleStudent {
		return nil, dErrors.New(dErrors.CodeForbidden, "only students can mark attendance")
	}
	if !session.Scope.Admits(principal) {
		return nil, dErrors.New(dErrors.CodeForbidden, "student is not part of this session's cohort")
	}

	marked, err := g.ledger.Exists(ctx, sessionID, principal.ID)
	if err != nil {
		return nil, err
	}
	if marked {
		return nil, dErrors.New(dErrors.CodeAlreadyMarked, "attendance already marked for this session")
	}

	switch proof.Method {
	case attendancemodels.MethodQR:
		return g.verifyToken(ctx, sessionID, proof.Token)
	case attendancemodels.MethodFace:
		return g.verifyFace(ctx, principal.ID, proof.Image)
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "method must be qr or face")
	}
}

func (g *Gateway) verifyToken(ctx context.Context, sessionID id.SessionID, scanned string) (*Result, error) {
	payload := qr.Parse(scanned)
	if payload.Token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "qr_token is required")
	}
	if payload.SessionID != "" && payload.SessionID != sessionID.String() {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "qr code belongs to a different session")
	}
	ok, err := g.tokens.Validate(ctx, sessionID, payload.Token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "qr code is invalid or expired")
	}
	return &Result{Method: attendancemodels.MethodQR}, nil
}

func (g *Gateway) verifyFace(ctx context.Context, principalID id.PrincipalID, image []byte) (*Result, error) {
	match, err := g.CheckFace(ctx, principalID, image)
	if err != nil {
		return nil, err
	}
	if !match.Verified {
		return nil, dErrors.New(dErrors.CodeBiometricMismatch, "face does not match enrollment")
	}
	confidence := match.Confidence
	return &Result{Method: attendancemodels.MethodFace, Confidence: &confidence}, nil
}

// CheckFace scores image against the principal's enrollment without touching
// the ledger. Returns CodeNotEnrolled when there is no enrollment.
func (g *Gateway) CheckFace(ctx context.Context, principalID id.PrincipalID, image []byte) (biometric.Result, error) {
	ctx, span := g.tracer.Start(ctx, "verification.CheckFace")
	defer span.End()

	if len(image) == 0 {
		return biometric.Result{}, dErrors.New(dErrors.CodeValidation, "image is required")
	}
	enrollment, err := g.enrollments.Get(ctx, principalID)
	if err != nil {
		return biometric.Result{}, err
	}
	result, err := g.matcher.Verify(ctx, image, enrollment.Embedding)
	if err != nil {
		span.RecordError(err)
		return biometric.Result{}, err
	}
	span.SetAttributes(
		attribute.Float64("biometric.confidence", result.Confidence),
		attribute.Bool("biometric.verified", result.Verified),
	)
	return result, nil
}

// Mark verifies proof and records attendance. The ledger insert remains the
// authoritative uniqueness and open-session check.
func (g *Gateway) Mark(ctx context.Context, sessionID id.SessionID, principal id.Principal, proof Proof) (*attendancemodels.Record, error) {
	result, err := g.Verify(ctx, sessionID, principal, proof)
	if err != nil {
		return nil, err
	}
	record, err := g.ledger.Record(ctx, sessionID, principal.ID, result.Method, attendancemodels.Metadata{
		ClientIP:   requestcontext.ClientIP(ctx),
		Device:     metadata.DeviceLabel(requestcontext.UserAgent(ctx)),
		Confidence: result.Confidence,
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (g *Gateway) reject(ctx context.Context, span trace.Span, sessionID id.SessionID, principalID id.PrincipalID, method attendancemodels.Method, err error) {
	code := dErrors.CodeOf(err)
	span.SetAttributes(attribute.String("verification.outcome", string(code)))
	if code == dErrors.CodeInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		g.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID.String(),
			"principal_id", principalID.String(),
			"error", err,
		)
	}
	g.metrics.Observe(string(method), string(code))

	switch code {
	case dErrors.CodeInvalidToken, dErrors.CodeBiometricMismatch, dErrors.CodeNotEnrolled, dErrors.CodeForbidden:
		g.emitAudit(ctx, audit.Event{
			Action:      string(audit.EventVerificationRejected),
			PrincipalID: principalID,
			Subject:     sessionID.String(),
			Decision:    string(method),
			Reason:      string(code),
		})
	}
}

func (g *Gateway) emitAudit(ctx context.Context, event audit.Event) {
	if g.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	if err := g.auditPublisher.Emit(ctx, event); err != nil {
		g.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/analytics"
	analyticshandler "rollcall/internal/analytics/handler"
	attendancehandler "rollcall/internal/attendance/handler"
	attendancemetrics "rollcall/internal/attendance/metrics"
	attendanceservice "rollcall/internal/attendance/service"
	"rollcall/internal/biometric"
	enrollmenthandler "rollcall/internal/enrollment/handler"
	enrollmentservice "rollcall/internal/enrollment/service"
	httpapi "rollcall/internal/http"
	identityhandler "rollcall/internal/identity/handler"
	identityservice "rollcall/internal/identity/service"
	jwttoken "rollcall/internal/jwt_token"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/logger"
	platformmetrics "rollcall/internal/platform/metrics"
	"rollcall/internal/platform/tracing"
	ratelimitmetrics "rollcall/internal/ratelimit/metrics"
	ratelimit "rollcall/internal/ratelimit/middleware"
	sessionhandler "rollcall/internal/session/handler"
	sessionmetrics "rollcall/internal/session/metrics"
	sessionservice "rollcall/internal/session/service"
	"rollcall/internal/token"
	tokenmetrics "rollcall/internal/token/metrics"
	"rollcall/internal/verification"
	verificationmetrics "rollcall/internal/verification/metrics"
	"rollcall/pkg/platform/audit/publisher"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped cleanly")
}

// run wires the service graph and blocks until ctx is cancelled or a
// component fails.
func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.ServiceName, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	auditPublisher := publisher.NewPublisher(infra.auditStore, publisher.WithLogger(log))

	tokens := token.New(infra.secrets, infra.sessions,
		token.WithLogger(log),
		token.WithMetrics(tokenmetrics.New()),
	)
	sessions := sessionservice.New(infra.sessions, tokens,
		sessionservice.WithLogger(log),
		sessionservice.WithAuditPublisher(auditPublisher),
		sessionservice.WithMetrics(sessionmetrics.New()),
	)
	ledger := attendanceservice.New(infra.records, sessions,
		attendanceservice.WithLogger(log),
		attendanceservice.WithAuditPublisher(auditPublisher),
		attendanceservice.WithMetrics(attendancemetrics.New()),
	)

	verifier := biometric.NewVerifier(biometric.HashExtractor{}, biometric.CosineMatcher{},
		biometric.WithThreshold(cfg.Attendance.SimilarityThreshold),
		biometric.WithTimeout(cfg.Attendance.MatcherTimeout),
		biometric.WithLogger(log),
	)
	enrollments := enrollmentservice.New(infra.enrollments, verifier,
		enrollmentservice.WithLogger(log),
		enrollmentservice.WithAuditPublisher(auditPublisher),
	)
	gateway := verification.New(sessions, tokens, enrollments, verifier, ledger,
		verification.WithLogger(log),
		verification.WithAuditPublisher(auditPublisher),
		verification.WithMetrics(verificationmetrics.New()),
	)

	identities := identityservice.New(infra.principals, enrollments, identityservice.WithLogger(log))
	insights := analytics.NewService(sessions, ledger, identities,
		analytics.WithLogger(log),
		analytics.WithThresholds(analytics.Thresholds{
			LowAttendance: cfg.Attendance.LowAttendanceThreshold,
			LowAverage:    cfg.Attendance.InsightLowCutoff,
			HighAverage:   cfg.Attendance.InsightHighCutoff,
		}),
	)

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	if infra.dev {
		if err := seedDevPrincipals(ctx, identities, jwt, log); err != nil {
			return err
		}
	}

	limiter := ratelimit.New(infra.buckets, log,
		ratelimit.WithAuditPublisher(auditPublisher),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
	)
	identityHTTP := identityhandler.New(identities, log)
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:            log,
		Validator:         jwttoken.NewPrincipalValidator(jwt),
		Metrics:           platformmetrics.New(prometheus.DefaultRegisterer),
		ObservePrincipals: identityHTTP.ObservePrincipals,
		Health:            func(r *http.Request) error { return infra.Health(r.Context()) },
		Handlers: []httpapi.Registrar{
			identityHTTP,
			sessionhandler.New(sessions, log),
			enrollmenthandler.New(enrollments, gateway, log, cfg.Attendance.MaxImageBytes),
			attendancehandler.New(gateway, ledger, log, cfg.Attendance.MaxImageBytes,
				attendancehandler.WithMarkLimiter(limiter.LimitMarks(cfg.RateLimit.MarkLimit, cfg.RateLimit.MarkWindow)),
			),
			analyticshandler.New(insights, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting rollcall", "addr", cfg.Addr, "dev_mode", infra.dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if infra.relay != nil {
		g.Go(func() error {
			log.Info("starting audit outbox relay", "topic", cfg.Kafka.AuditTopic)
			return infra.relay.Run(gctx)
		})
	}
	if cfg.Attendance.RotateSecretEvery > 0 {
		rotator := token.NewRotator(tokens, infra.sessions, cfg.Attendance.RotateSecretEvery, log)
		g.Go(func() error {
			return rotator.Run(gctx)
		})
	}
	return g.Wait()
}

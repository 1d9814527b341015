package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	attendancemodels "rollcall/internal/attendance/models"
	attendanceservice "rollcall/internal/attendance/service"
	identitymodels "rollcall/internal/identity/models"
	sessionmodels "rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/requestcontext"
)

var analyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "rollcall_analytics_duration_seconds",
	Help:    "Time to load and aggregate an analytics snapshot",
	Buckets: prometheus.DefBuckets,
})

// Sessions lists the sessions a caller may see.
type Sessions interface {
	List(ctx context.Context, caller id.Principal, requested sessionmodels.ListFilter) ([]*sessionmodels.Session, error)
}

type Records interface {
	All(ctx context.Context, filter attendancemodels.Filter) ([]*attendancemodels.Record, error)
}

type Roster interface {
	Roster(ctx context.Context, filter identitymodels.RosterFilter) ([]*identitymodels.Member, error)
}

// Query narrows analytics within the caller's scope.
type Query struct {
	DepartmentID id.DepartmentID
	Year         string
	Section      string
}

type Service struct {
	sessions   Sessions
	records    Records
	roster     Roster
	thresholds Thresholds
	logger     *slog.Logger
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithThresholds(th Thresholds) Option {
	return func(s *Service) {
		s.thresholds = th
	}
}

func NewService(sessions Sessions, records Records, roster Roster, opts ...Option) *Service {
	s := &Service{
		sessions:   sessions,
		records:    records,
		roster:     roster,
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("rollcall/internal/analytics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze loads sessions, records and roster in the caller's scope
// concurrently and computes a snapshot. Faculty see only their own sessions.
func (s *Service) Analyze(ctx context.Context, caller id.Principal, q Query) (*Snapshot, error) {
	if caller.Role == id.RoleStudent || !caller.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeForbidden, "analytics are not available to this role")
	}
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analytics.Analyze", trace.WithAttributes(
		attribute.String("principal.role", caller.Role.String()),
	))
	defer span.End()

	var in Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessions, err := s.sessions.List(gctx, caller, sessionmodels.ListFilter{
			DepartmentID: q.DepartmentID,
			Year:         q.Year,
			Section:      q.Section,
		})
		in.Sessions = sessions
		return err
	})
	g.Go(func() error {
		records, err := s.records.All(gctx, attendanceservice.ScopeFor(caller, attendancemodels.Filter{
			DepartmentID: q.DepartmentID,
			Year:         q.Year,
			Section:      q.Section,
		}))
		in.Records = records
		return err
	})
	g.Go(func() error {
		roster, err := s.roster.Roster(gctx, rosterFor(caller, q))
		in.Roster = roster
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "failed to load analytics inputs",
			"request_id", requestcontext.RequestID(ctx),
			"principal_id", caller.ID.String(),
			"error", err,
		)
		return nil, err
	}

	snap := Compute(in, s.thresholds)
	span.SetAttributes(
		attribute.Int("analytics.sessions", snap.TotalSessions),
		attribute.Int("analytics.records", snap.TotalAttendance),
		attribute.Int("analytics.students", snap.TotalStudents),
	)
	analyzeDuration.Observe(time.Since(start).Seconds())
	return &snap, nil
}

// rosterFor pins the roster to the caller's level of the hierarchy.
func rosterFor(caller id.Principal, q Query) identitymodels.RosterFilter {
	f := identitymodels.RosterFilter{DepartmentID: q.DepartmentID, Year: q.Year, Section: q.Section}
	switch caller.Role {
	case id.RoleCollegeAdmin:
		f.CollegeID = caller.CollegeID
	case id.RoleDepartmentAdmin:
		f.DepartmentID = caller.DepartmentID
	case id.RoleFaculty:
		if f.DepartmentID.IsNil() {
			f.DepartmentID = caller.DepartmentID
		}
	}
	return f
}

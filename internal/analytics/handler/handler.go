package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/analytics"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/middleware/auth"
	"rollcall/pkg/requestcontext"
)

type Service interface {
	Analyze(ctx context.Context, caller id.Principal, q analytics.Query) (*analytics.Snapshot, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(auth.RequireRole(h.logger,
		id.RoleFaculty, id.RoleDepartmentAdmin, id.RoleCollegeAdmin, id.RoleUniversityAdmin,
	)).Get("/attendance/analytics", h.HandleAnalytics)
}

// HandleAnalytics handles GET /attendance/analytics.
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	params := r.URL.Query()
	q := analytics.Query{
		Year:    strings.TrimSpace(params.Get("year")),
		Section: strings.TrimSpace(params.Get("section")),
	}
	if dept := strings.TrimSpace(params.Get("department_id")); dept != "" {
		parsed, err := id.ParseDepartmentID(dept)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		q.DepartmentID = parsed
	}

	snap, err := h.service.Analyze(ctx, caller, q)
	if err != nil {
		h.logger.WarnContext(ctx, "analytics request failed",
			"request_id", requestcontext.RequestID(ctx),
			"principal_id", caller.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/identity/service"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

type Service interface {
	Me(ctx context.Context, caller id.Principal) (*service.Me, error)
	Observe(ctx context.Context, p id.Principal) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/me", h.HandleMe)
}

type MeResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role"`
	CollegeID    string `json:"college_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	Year         string `json:"year,omitempty"`
	Section      string `json:"section,omitempty"`
	Subject      string `json:"subject,omitempty"`
	FaceEnrolled bool   `json:"face_enrolled"`
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	me, err := h.service.Me(ctx, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve caller",
			"request_id", requestcontext.RequestID(ctx),
			"principal_id", caller.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	p := me.Principal
	resp := MeResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		Email:        p.Email,
		Role:         p.Role.String(),
		Year:         p.Year,
		Section:      p.Section,
		Subject:      p.Subject,
		FaceEnrolled: me.FaceEnrolled,
	}
	if !p.CollegeID.IsNil() {
		resp.CollegeID = p.CollegeID.String()
	}
	if !p.DepartmentID.IsNil() {
		resp.DepartmentID = p.DepartmentID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ObservePrincipals records each authenticated caller in the directory.
// Directory failures are logged and never fail the request.
func (h *Handler) ObservePrincipals(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := h.service.Observe(ctx, requestcontext.Principal(ctx)); err != nil {
			h.logger.WarnContext(ctx, "failed to record principal",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		next.ServeHTTP(w, r)
	})
}

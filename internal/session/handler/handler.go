package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/session/models"
	"rollcall/internal/session/service"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/middleware/auth"
	"rollcall/pkg/requestcontext"
)

// Service defines the session operations exposed over HTTP.
type Service interface {
	Open(ctx context.Context, holder id.Principal, req service.OpenRequest) (*service.Opened, error)
	Close(ctx context.Context, sessionID id.SessionID, caller id.PrincipalID) (*models.Session, error)
	View(ctx context.Context, sessionID id.SessionID, caller id.Principal) (*service.Opened, error)
	List(ctx context.Context, caller id.Principal, requested models.ListFilter) ([]*models.Session, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts session endpoints. The router must already require auth.
func (h *Handler) Register(r chi.Router) {
	holders := auth.RequireRole(h.logger, id.RoleFaculty, id.RoleDepartmentAdmin, id.RoleCollegeAdmin)
	r.With(holders).Post("/sessions", h.HandleOpen)
	r.With(holders).Put("/sessions/{id}/end", h.HandleClose)
	r.Get("/sessions", h.HandleList)
	r.Get("/sessions/{id}", h.HandleGet)
}

// HandleOpen handles POST /sessions.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Principal(ctx)

	req, ok := httputil.DecodeAndPrepare[OpenSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	opened, err := h.service.Open(ctx, caller, service.OpenRequest{
		Scope: models.Scope{
			DepartmentID: req.parsedDepartment,
			Year:         req.Year,
			Section:      req.Section,
		},
		Subject: req.Subject,
		Kind:    req.parsedKind,
		Date:    req.parsedDate,
	})
	if err != nil {
		h.logFailure(ctx, "failed to open session", caller.ID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toOpenedResponse(opened))
}

// HandleClose handles PUT /sessions/{id}/end.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.Close(ctx, sessionID, caller.ID)
	if err != nil {
		h.logFailure(ctx, "failed to close session", caller.ID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleGet handles GET /sessions/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.View(ctx, sessionID, caller)
	if err != nil {
		h.logFailure(ctx, "failed to get session", caller.ID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOpenedResponse(view))
}

// HandleList handles GET /sessions.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	filter, err := listFilterFromQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessions, err := h.service.List(ctx, caller, filter)
	if err != nil {
		h.logFailure(ctx, "failed to list sessions", caller.ID, err)
		httputil.WriteError(w, err)
		return
	}
	resp := SessionListResponse{Sessions: make([]SessionResponse, 0, len(sessions)), Total: len(sessions)}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logFailure(ctx context.Context, msg string, caller id.PrincipalID, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"principal_id", caller.String(),
		"error", err,
	)
}

// Package httpapi assembles the public HTTP surface from the module handlers.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	platformmetrics "rollcall/internal/platform/metrics"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/middleware/auth"
	"rollcall/pkg/platform/middleware/metadata"
	request "rollcall/pkg/platform/middleware/request"
	"rollcall/pkg/platform/middleware/requesttime"
)

// Registrar is a module handler that mounts its routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything NewRouter mounts. Handlers are registered behind
// bearer authentication in the order given.
type Deps struct {
	Logger            *slog.Logger
	Validator         auth.PrincipalValidator
	Metrics           *platformmetrics.Metrics
	ObservePrincipals func(http.Handler) http.Handler
	Handlers          []Registrar
	Health            func(r *http.Request) error
}

// NewRouter wires the middleware chain: request id, request time, client
// metadata, panic recovery and metrics for every route, then bearer auth and
// principal observation for the API.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimiddleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if d.Health != nil {
			if err := d.Health(req); err != nil {
				d.Logger.WarnContext(req.Context(), "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", platformmetrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(auth.RequireAuth(d.Validator, d.Logger))
		if d.ObservePrincipals != nil {
			api.Use(d.ObservePrincipals)
		}
		for _, h := range d.Handlers {
			h.Register(api)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error":             "not_found",
			"error_description": "route not found",
		})
	})
	return r
}

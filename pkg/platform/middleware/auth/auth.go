// Package auth resolves the caller from a bearer token and guards routes by role.
package auth

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	request "rollcall/pkg/platform/middleware/request"
	"rollcall/pkg/requestcontext"
)

// PrincipalValidator verifies a bearer token and returns the caller it names.
type PrincipalValidator interface {
	ValidatePrincipal(tokenString string) (id.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved principal in the request context.
func RequireAuth(validator PrincipalValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			principal, err := validator.ValidatePrincipal(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only callers whose role is in roles. It must run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := requestcontext.Principal(ctx)
			if principal.IsZero() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !slices.Contains(roles, principal.Role) {
				logger.WarnContext(ctx, "forbidden - role not permitted",
					"principal_id", principal.ID.String(),
					"role", string(principal.Role),
					"path", r.URL.Path,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

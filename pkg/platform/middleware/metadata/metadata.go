// Package metadata captures where a request came from.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"rollcall/pkg/requestcontext"
)

// ClientMetadata stores the caller's IP and User-Agent in the request context.
// Records and audit events read them back through requestcontext.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceLabel renders a short "Browser on OS" label from a User-Agent string.
// Returns "unknown" when nothing useful can be parsed.
func DeviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	name, _ := ua.Browser()
	osName := ua.OS()
	switch {
	case ua.Bot():
		return "bot"
	case name != "" && osName != "":
		label := name + " on " + osName
		if ua.Mobile() {
			label += " (mobile)"
		}
		return label
	case name != "":
		return name
	default:
		return "unknown"
	}
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the host part of RemoteAddr.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

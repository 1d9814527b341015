// Package requestcontext carries request-scoped values (caller, client
// metadata, request id and request time) without depending on net/http, so
// services read them the same way whether a call came from a handler, the
// relay or a test.
package requestcontext

import (
	"context"
	"time"

	id "rollcall/pkg/domain"
)

type (
	principalKey   struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Principal returns the authenticated caller, or the zero Principal.
func Principal(ctx context.Context) id.Principal {
	if p, ok := ctx.Value(principalKey{}).(id.Principal); ok {
		return p
	}
	return id.Principal{}
}

func PrincipalID(ctx context.Context) id.PrincipalID {
	return Principal(ctx).ID
}

func WithPrincipal(ctx context.Context, p id.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata is set by the metadata middleware; service tests call it
// directly.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return ctx
}

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the time pinned at the start of the request so every record and
// audit event written for it agrees. Outside a request it is time.Now().
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

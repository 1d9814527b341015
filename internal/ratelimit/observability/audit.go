// Package observability records throttling decisions in the log and the audit trail.
package observability

import (
	"context"
	"log/slog"

	"rollcall/pkg/attrs"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit writes event to logger and, when publisher is set, to the audit
// trail. Subject and reason are taken from the "bucket" and "reason"
// attributes.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.AuditEvent, principalID id.PrincipalID, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append(attrList,
		"event", string(event),
		"log_type", "audit",
		"request_id", requestID,
		"principal_id", principalID.String(),
	)
	if logger != nil {
		logger.WarnContext(ctx, string(event), args...)
	}
	if publisher == nil {
		return
	}
	err := publisher.Emit(ctx, audit.Event{
		Action:      string(event),
		PrincipalID: principalID,
		Subject:     attrs.ExtractString(attrList, "bucket"),
		Reason:      attrs.ExtractString(attrList, "reason"),
		Decision:    "denied",
		RequestID:   requestID,
		IP:          requestcontext.ClientIP(ctx),
	})
	if err != nil && logger != nil {
		logger.ErrorContext(ctx, "failed to emit audit event", "action", string(event), "error", err)
	}
}

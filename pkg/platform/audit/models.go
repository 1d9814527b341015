package audit

import (
	"context"
	"time"

	id "rollcall/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers the attendance trail itself: who was counted
	// present, and which sessions existed. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected proofs, throttling and biometric
	// template changes. These feed alerting.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID          string
	Category    EventCategory
	Timestamp   time.Time
	PrincipalID id.PrincipalID
	// Subject is the entity acted on, usually a session id.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID is set when someone other than PrincipalID performed the action.
	ActorID string
	IP      string
}

type AuditEvent string

const (
	// Session events
	EventSessionOpened AuditEvent = "session_opened"
	EventSessionClosed AuditEvent = "session_closed"
	EventSecretRotated AuditEvent = "session_secret_rotated"
	EventSessionViewed AuditEvent = "session_viewed"

	// Attendance events
	EventAttendanceMarked     AuditEvent = "attendance_marked"
	EventVerificationRejected AuditEvent = "verification_rejected"

	// Enrollment events
	EventEnrollmentCreated  AuditEvent = "enrollment_created"
	EventEnrollmentReplaced AuditEvent = "enrollment_replaced"

	// Rate limit events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSessionOpened:    CategoryCompliance,
	EventSessionClosed:    CategoryCompliance,
	EventAttendanceMarked: CategoryCompliance,

	EventVerificationRejected: CategorySecurity,
	EventEnrollmentCreated:    CategorySecurity,
	EventEnrollmentReplaced:   CategorySecurity,
	EventRateLimitExceeded:    CategorySecurity,
	EventSecretRotated:        CategorySecurity,

	EventSessionViewed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

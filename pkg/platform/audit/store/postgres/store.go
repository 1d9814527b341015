package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "rollcall/pkg/platform/audit"
	txcontext "rollcall/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the caller's transaction and
// published to Kafka by the outbox relay.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Exec(ctx, s.db)
}

// Payload is the JSON document published to Kafka for each event.
type Payload struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Timestamp   string `json:"timestamp"`
	PrincipalID string `json:"principal_id,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Action      string `json:"action"`
	Decision    string `json:"decision,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
	IP          string `json:"ip,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	payload := Payload{
		ID:        eventID,
		Category:  string(category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
		IP:        event.IP,
	}
	aggregateType := "audit"
	aggregateID := eventID
	if !event.PrincipalID.IsNil() {
		payload.PrincipalID = event.PrincipalID.String()
		aggregateType = "principal"
		aggregateID = payload.PrincipalID
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

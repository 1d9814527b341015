// Package outbox relays audit events from the outbox table to a message broker.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Message is one outbox row ready for publishing.
type Message struct {
	ID        uuid.UUID
	Key       string
	EventType string
	Payload   []byte
}

// Producer delivers messages to the broker. Publish must return only after the
// broker acknowledged every message.
type Producer interface {
	Publish(ctx context.Context, msgs []Message) error
}

// Relay polls unpublished outbox rows and hands them to a Producer. Rows are
// claimed with FOR UPDATE SKIP LOCKED so several replicas can relay in parallel.
type Relay struct {
	db        *sql.DB
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(db *sql.DB, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		producer:  producer,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many rows it marked published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin relay tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select outbox batch: %w", err)
	}
	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Key, &m.EventType, &m.Payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		msgs = append(msgs, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := r.producer.Publish(ctx, msgs); err != nil {
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID.String()
	}
	if _, err := tx.ExecContext(ctx, `UPDATE outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit relay tx: %w", err)
	}
	return len(msgs), nil
}

// Package publisher emits audit events to a store, synchronously or through a
// buffered background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "rollcall/pkg/domain"
	audit "rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/audit/worker"
)

var ErrBufferFull = errors.New("audit buffer full")

// Lister is implemented by stores that can answer per-principal queries.
type Lister interface {
	ListByPrincipal(ctx context.Context, principalID id.PrincipalID) ([]audit.Event, error)
}

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox  chan audit.Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer makes Emit non-blocking: events are queued and persisted by a
// background worker. Emit returns ErrBufferFull when the queue is saturated.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
		}()
	}
	return p
}

// Emit stamps and records an event. In synchronous mode the store write joins
// any transaction carried by ctx.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.logger != nil {
		p.logger.InfoContext(ctx, event.Action,
			"log_type", "audit",
			"category", string(event.Category),
			"principal_id", event.PrincipalID.String(),
			"subject", event.Subject,
			"decision", event.Decision,
			"reason", event.Reason,
			"request_id", event.RequestID,
		)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns the events recorded for a principal when the store supports it.
func (p *Publisher) List(ctx context.Context, principalID id.PrincipalID) ([]audit.Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, errors.New("audit store does not support listing")
	}
	return lister.ListByPrincipal(ctx, principalID)
}

// Close drains queued events and stops the background worker.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
		p.cancel()
	})
}

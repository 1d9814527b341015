package worker

import (
	"context"
	"log/slog"

	audit "rollcall/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them until the
// channel is closed or the context is cancelled.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox. A failed append is logged and skipped so one bad event
// cannot stall the pipeline.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(context.WithoutCancel(ctx), event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}

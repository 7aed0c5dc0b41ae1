package audit

import (
	"context"
	"log/slog"
)

// Worker drains a publisher inbox into a store. It keeps background
// persistence off the request path without wiring a queue for small
// deployments.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run consumes events until the context is cancelled. Persistence failures
// are logged and the worker keeps going; audit is fail-open.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"actor", event.Actor.Short(),
					"error", err,
				)
			}
		}
	}
}

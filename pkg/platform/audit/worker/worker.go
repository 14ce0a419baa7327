package worker

import (
	"context"
	"log/slog"

	audit "charity/pkg/platform/audit"
)

// Worker drains audit events from a channel into a store. A failed append is
// logged and skipped; audit delivery never blocks the registry.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run returns nil once inbox is closed and drained, or ctx.Err() if ctx ends first.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "failed to append audit event",
					"action", event.Action,
					"project_id", event.ProjectID.String(),
					"error", err,
				)
			}
		}
	}
}

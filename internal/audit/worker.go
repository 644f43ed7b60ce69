package audit

import (
	"context"
	"log/slog"

	"sevasetu/internal/platform/metrics"
)

// Worker consumes audit events from the inbox and persists them. A failed
// append is logged and counted, never retried: availability of the primary
// transition beats completeness of the trail.
type Worker struct {
	store   Store
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger, metrics: m}
}

// Run drains the inbox until ctx is cancelled, then flushes whatever is still
// queued before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	// Detached context: the request contexts that produced these events are
	// long gone and the server is shutting down.
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.append(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		if w.metrics != nil {
			w.metrics.AuditDropped.Inc()
		}
		w.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}

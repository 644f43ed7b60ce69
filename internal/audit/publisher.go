package audit

import (
	"context"
	"log/slog"
	"time"

	"sevasetu/internal/platform/metrics"
	"sevasetu/pkg/requestcontext"
)

// Publisher hands events to the pipeline without blocking the caller. A full
// inbox drops the event: the primary transition has already been committed and
// must not wait on audit capacity.
type Publisher struct {
	inbox   chan<- Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{inbox: inbox, logger: logger, metrics: m}
}

// Emit enqueues the event, stamping timestamp and request id from context when
// absent. Never returns an error; failures are logged and counted.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil || p.inbox == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		if p.metrics != nil {
			p.metrics.AuditDropped.Inc()
		}
		p.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

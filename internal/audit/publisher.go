package audit

import (
	"context"
	"log/slog"
	"time"

	"sahaya/pkg/requestcontext"
)

// Publisher hands events to the background worker through a buffered channel.
// Emit never blocks the calling operation: audit here is operational trail,
// not a fail-closed compliance gate, so a full buffer drops the event with a
// log line rather than stalling an assessment or an admin write.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

// Emit enqueues an event, stamping timestamp and request ID from the context.
// Safe on a nil publisher so tests can skip audit wiring.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
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
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"scheme_id", event.SchemeID,
		)
	}
}

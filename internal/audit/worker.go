package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the inbox and fans them out to every
// configured sink. A failing sink is logged and skipped; the worker never
// stops on sink errors because losing the trail must not take the service
// down with it.
type Worker struct {
	sinks  []Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{sinks: sinks, inbox: inbox, logger: logger}
}

// Run processes events until the context is cancelled, then drains whatever
// is already buffered.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case event := <-w.inbox:
			w.dispatch(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.dispatch(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, event Event) {
	for _, sink := range w.sinks {
		if err := sink.Append(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "audit sink append failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs SweepExpired on a fixed interval. It operates through the same
// store locks as regular session access, so sessions it has not reached stay
// fully available while it runs.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.service.SweepExpired(ctx); err != nil {
				s.logger.ErrorContext(ctx, "session sweep failed", "error", err)
			}
		}
	}
}

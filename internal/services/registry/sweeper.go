package registry

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultSweepInterval is how often the sweeper runs
	DefaultSweepInterval = 15 * time.Minute
	// DefaultMaxRoomAge is the age past which a room is evicted
	DefaultMaxRoomAge = time.Hour
)

// Sweeper periodically evicts stale rooms from the registry
type Sweeper struct {
	registry *Controller
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. Zero interval or maxAge fall back to the
// defaults.
func NewSweeper(registry *Controller, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxRoomAge
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Start runs the sweep loop until the context is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("max_age", s.maxAge),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.registry.SweepExpired(ctx, s.maxAge); err != nil {
				s.logger.Error("sweep failed", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		}
	}
}

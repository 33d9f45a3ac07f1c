package app

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredSweep removes rows past their useful life and reports how many went.
type ExpiredSweep interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically clears expired exchange tokens and sessions. Expiry is
// already enforced at read time; the sweeper only keeps the tables from
// growing without bound.
type Sweeper struct {
	interval time.Duration
	logger   *slog.Logger
	targets  map[string]ExpiredSweep
}

func NewSweeper(interval time.Duration, logger *slog.Logger, exchangeTokens, sessions ExpiredSweep) *Sweeper {
	return &Sweeper{
		interval: interval,
		logger:   logger,
		targets: map[string]ExpiredSweep{
			"exchange_tokens": exchangeTokens,
			"sessions":        sessions,
		},
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	for name, target := range s.targets {
		removed, err := target.SweepExpired(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "sweep failed", "target", name, "error", err)
			continue
		}
		if removed > 0 {
			s.logger.InfoContext(ctx, "sweep completed", "target", name, "removed", removed)
		}
	}
}

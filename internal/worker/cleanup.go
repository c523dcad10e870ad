// Package worker runs background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically deletes expired refresh tokens and biometric
// challenges. Expiry is always enforced at read time; the janitor only
// keeps the tables from growing without bound.
type Janitor struct {
	tokens     CleanupFunc
	challenges CleanupFunc
	interval   time.Duration
	logger     *slog.Logger
}

// CleanupFunc deletes expired rows and reports how many went away.
type CleanupFunc func(ctx context.Context) (int64, error)

// NewJanitor creates a Janitor sweeping at the given interval.
func NewJanitor(tokens, challenges CleanupFunc, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		tokens:     tokens,
		challenges: challenges,
		interval:   interval,
		logger:     logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is canceled.
// It blocks; callers run it in a goroutine.
func (j *Janitor) Run(ctx context.Context) {
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	tokens, err := j.tokens(ctx)
	if err != nil {
		j.logger.Error("expired token sweep failed", slog.String("error", err.Error()))
	}
	challenges, err := j.challenges(ctx)
	if err != nil {
		j.logger.Error("expired challenge sweep failed", slog.String("error", err.Error()))
	}
	if tokens > 0 || challenges > 0 {
		j.logger.Info("cleanup sweep",
			slog.Int64("expiredTokens", tokens),
			slog.Int64("expiredChallenges", challenges),
		)
	}
}

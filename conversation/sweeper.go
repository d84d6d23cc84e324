package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper periodically evicts inactive sessions from a Store.
type Sweeper struct {
	store    *Store
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper that runs every interval and evicts
// sessions idle for timeout.
func NewSweeper(store *Store, interval, timeout time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if interval <= 0 || timeout <= 0 {
		return nil, fmt.Errorf("sweeper interval and timeout must be positive, got %s and %s", interval, timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "session-sweeper"),
	}, nil
}

// Run sweeps until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Debug("sweeper started", "interval", sw.interval, "timeout", sw.timeout)
	for {
		select {
		case <-ctx.Done():
			sw.logger.Debug("sweeper stopped")
			return
		case <-ticker.C:
			sw.store.CleanupInactiveSessions(sw.timeout)
		}
	}
}

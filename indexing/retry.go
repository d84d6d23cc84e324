package indexing

import (
	"context"
	"log/slog"
	"time"
)

// retryWithBackoff runs op up to attempts times, sleeping baseDelay doubled
// after each failure. It returns the last error.
func retryWithBackoff(ctx context.Context, logger *slog.Logger, attempts int, baseDelay time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.Debug("operation failed, will retry", "attempt", attempt, "max_attempts", attempts, "err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}

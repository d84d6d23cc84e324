package indexing

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithBackoff(t *testing.T) {
	logger := slog.Default()
	errTransient := errors.New("transient")

	t.Run("succeeds first time", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), logger, 3, time.Millisecond, func() error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), logger, 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), logger, 2, time.Millisecond, func() error {
			calls++
			return errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 2, calls)
	})

	t.Run("zero attempts runs once", func(t *testing.T) {
		calls := 0
		_ = retryWithBackoff(context.Background(), logger, 0, time.Millisecond, func() error {
			calls++
			return errTransient
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retryWithBackoff(ctx, logger, 5, time.Hour, func() error {
			calls++
			cancel()
			return errTransient
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

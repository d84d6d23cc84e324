package qa

import "time"

// Monitor observes completed queries.
type Monitor interface {
	QueryCompleted(success bool, elapsed time.Duration)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) QueryCompleted(_ bool, _ time.Duration) {}

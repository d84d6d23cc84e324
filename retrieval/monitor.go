package retrieval

import (
	"time"

	"github.com/poiesic/docqa/core"
)

// Monitor provides hooks to observe retrieval.
type Monitor interface {
	Start(question string)
	Failed(err error)
	Finish(results []core.SearchResult, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                 {}
func (n *noopMonitor) Failed(_ error)                                 {}
func (n *noopMonitor) Finish(_ []core.SearchResult, _ time.Duration) {}

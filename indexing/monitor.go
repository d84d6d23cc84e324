package indexing

import "time"

// Stages reported to Monitor.DocumentFailed.
const (
	StageLoad  = "load"
	StageSplit = "split"
	StageEmbed = "embed"
	StageStore = "store"
)

// Monitor observes indexing outcomes per document.
// A split failure is reported but the document is still indexed whole.
type Monitor interface {
	DocumentIndexed(source string, chunks int, elapsed time.Duration)
	DocumentFailed(source, stage string, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) DocumentIndexed(_ string, _ int, _ time.Duration) {}
func (n *noopMonitor) DocumentFailed(_, _ string, _ error)             {}

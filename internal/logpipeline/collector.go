package logpipeline

import (
	"time"

	"github.com/kubetui/kubetui/internal/message"
	"github.com/kubetui/kubetui/internal/worker"
)

// CollectorInterval is the 200ms batch tick of spec.md §4.5.4.
const CollectorInterval = 200 * time.Millisecond

// LogCollector drains the shared LogBuffer on a fixed tick and emits
// one batched LogResponse per flush. Batching bounds UI refresh cost
// while preserving intra-stream order (spec.md §4.5.4).
type LogCollector struct {
	Buffer   *LogBuffer
	Life     *worker.Lifecycle
	Interval time.Duration

	// Emit is called once per tick that has at least one line buffered;
	// empty ticks are skipped so idle log views produce no traffic.
	Emit func(message.LogResponse)
}

// Run ticks until the lifecycle terminates.
func (c *LogCollector) Run() worker.Result {
	interval := c.Interval
	if interval == 0 {
		interval = CollectorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Life.Done():
			return worker.Terminated()
		case <-ticker.C:
			lines := c.Buffer.Drain()
			if len(lines) == 0 {
				continue
			}
			if c.Emit != nil {
				c.Emit(message.LogResponse{Lines: lines})
			}
		}
	}
}

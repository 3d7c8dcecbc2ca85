package logpipeline

import (
	"sync"

	"github.com/kubetui/kubetui/internal/message"
)

// StreamKey identifies one log stream (spec.md §3's LogBuffer key),
// distinct from TaskId in that it carries the resolved container_id
// rather than the container name alone.
type StreamKey struct {
	Namespace   string
	Pod         string
	Container   string
	ContainerID string
}

// line is one buffered entry, already filtered and transformed.
type line struct {
	key  StreamKey
	text string
}

// LogBuffer is the mutex-guarded append-only merge buffer of spec.md
// §4.5.4: every ContainerLogStreamer appends to the same buffer, and
// insertion order within a stream is preserved.
type LogBuffer struct {
	mu    sync.Mutex
	lines []line
}

// NewLogBuffer returns an empty buffer.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{}
}

// Append adds one line for key. Safe for concurrent use by every
// streamer sharing this buffer.
func (b *LogBuffer) Append(key StreamKey, text string) {
	b.mu.Lock()
	b.lines = append(b.lines, line{key: key, text: text})
	b.mu.Unlock()
}

// Drain swaps the buffer with a fresh empty one and returns everything
// that had accumulated, in arrival order.
func (b *LogBuffer) Drain() []message.LogLine {
	b.mu.Lock()
	taken := b.lines
	b.lines = nil
	b.mu.Unlock()

	if len(taken) == 0 {
		return nil
	}
	out := make([]message.LogLine, len(taken))
	for i, l := range taken {
		out[i] = message.LogLine{
			Namespace: l.key.Namespace,
			Pod:       l.key.Pod,
			Container: l.key.Container,
			Text:      l.text,
		}
	}
	return out
}

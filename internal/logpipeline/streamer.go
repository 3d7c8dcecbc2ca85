package logpipeline

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/kubetui/kubetui/internal/filter"
	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/message"
	"github.com/kubetui/kubetui/internal/metrics"
	"github.com/kubetui/kubetui/internal/worker"
)

// ContainerLogStreamer is the one-task-per-container follow-log reader
// of spec.md §4.5.3: it opens a log stream, runs each line through the
// filter pipeline, and appends survivors to the shared LogBuffer.
type ContainerLogStreamer struct {
	Logger    log.Logger
	Client    kubeclient.Interface
	Life      *worker.Lifecycle
	Buffer    *LogBuffer
	Query     *filter.Query
	EmitError func(error)

	Namespace   string
	Pod         string
	Container   string
	ContainerID string
}

// Run opens the stream and drains it until the lifecycle terminates or
// the stream ends (the container stopped, or the watcher replaced this
// task after observing a new container_id).
func (s *ContainerLogStreamer) Run() worker.Result {
	ctx := s.Life.Context()
	stream, err := s.Client.LogStream(ctx, s.Namespace, s.Pod, kubeclient.LogStreamParams{
		Container: s.Container,
		Follow:    true,
	})
	if err != nil {
		level.Error(s.Logger).Log("msg", "log stream open failed", "namespace", s.Namespace, "pod", s.Pod, "container", s.Container, "err", err)
		if s.EmitError != nil {
			s.EmitError(err)
		}
		return worker.Errored(err)
	}

	key := StreamKey{Namespace: s.Namespace, Pod: s.Pod, Container: s.Container, ContainerID: s.ContainerID}
	lines := kubeclient.ReadLines(ctx, stream)

	metrics.ActiveLogStreamers().Inc()
	defer metrics.ActiveLogStreamers().Dec()

	for {
		select {
		case <-s.Life.Done():
			return worker.Terminated()
		case text, ok := <-lines:
			if !ok {
				return worker.Terminated()
			}
			s.handleLine(ctx, key, text)
		}
	}
}

func (s *ContainerLogStreamer) handleLine(ctx context.Context, key StreamKey, text string) {
	if s.Query != nil {
		if !s.Query.AllowLine(text) {
			return
		}
		transformed, err := s.Query.Transform(ctx, text)
		if err != nil {
			level.Error(s.Logger).Log("msg", "jq transform failed", "err", err)
			return
		}
		text = transformed
	}
	s.Buffer.Append(key, text)
	metrics.LogLinesTotal().Inc()
}

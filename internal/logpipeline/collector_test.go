package logpipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kubetui/kubetui/internal/message"
	"github.com/kubetui/kubetui/internal/worker"
)

func TestLogCollector_EmitsOnlyWhenLinesBuffered(t *testing.T) {
	buf := NewLogBuffer()
	life := worker.NewLifecycle(context.Background())
	got := make(chan message.LogResponse, 4)

	c := &LogCollector{
		Buffer:   buf,
		Life:     life,
		Interval: 5 * time.Millisecond,
		Emit:     func(r message.LogResponse) { got <- r },
	}
	go c.Run()

	select {
	case <-got:
		t.Fatal("emitted before any line was buffered")
	case <-time.After(30 * time.Millisecond):
	}

	buf.Append(StreamKey{Namespace: "ns", Pod: "p", Container: "c"}, "hello")

	select {
	case r := <-got:
		require.Len(t, r.Lines, 1)
		require.Equal(t, "hello", r.Lines[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}

	life.Terminate()
}

func TestLogCollector_StopsOnTerminate(t *testing.T) {
	life := worker.NewLifecycle(context.Background())
	c := &LogCollector{Buffer: NewLogBuffer(), Life: life, Interval: time.Millisecond}

	resultCh := make(chan worker.Result, 1)
	go func() { resultCh <- c.Run() }()
	life.Terminate()

	select {
	case r := <-resultCh:
		require.True(t, r.Terminated)
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
}

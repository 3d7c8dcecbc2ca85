package logpipeline

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/kubetui/kubetui/internal/filter"
	"github.com/kubetui/kubetui/internal/kubeclient/fake"
	"github.com/kubetui/kubetui/internal/worker"
)

func TestContainerLogStreamer_AppendsAllLines(t *testing.T) {
	client := fake.New()
	client.LogLines["ns/p/c"] = []string{"line1", "line2"}

	buf := NewLogBuffer()
	life := worker.NewLifecycle(context.Background())
	s := &ContainerLogStreamer{
		Logger:      log.NewNopLogger(),
		Client:      client,
		Life:        life,
		Buffer:      buf,
		Namespace:   "ns",
		Pod:         "p",
		Container:   "c",
		ContainerID: "abc",
	}

	resultCh := make(chan worker.Result, 1)
	go func() { resultCh <- s.Run() }()

	select {
	case r := <-resultCh:
		require.True(t, r.Terminated)
	case <-time.After(2 * time.Second):
		t.Fatal("streamer did not finish")
	}

	lines := buf.Drain()
	require.Len(t, lines, 2)
	require.Equal(t, "line1", lines[0].Text)
	require.Equal(t, "line2", lines[1].Text)
}

func TestContainerLogStreamer_AppliesLineFilter(t *testing.T) {
	client := fake.New()
	client.LogLines["ns/p/c"] = []string{"keep this", "drop this"}

	q, err := filter.Parse(`log:keep`)
	require.NoError(t, err)

	buf := NewLogBuffer()
	life := worker.NewLifecycle(context.Background())
	s := &ContainerLogStreamer{
		Logger:    log.NewNopLogger(),
		Client:    client,
		Life:      life,
		Buffer:    buf,
		Query:     q,
		Namespace: "ns",
		Pod:       "p",
		Container: "c",
	}

	resultCh := make(chan worker.Result, 1)
	go func() { resultCh <- s.Run() }()

	select {
	case <-resultCh:
	case <-time.After(2 * time.Second):
		t.Fatal("streamer did not finish")
	}

	lines := buf.Drain()
	require.Len(t, lines, 1)
	require.Equal(t, "keep this", lines[0].Text)
}

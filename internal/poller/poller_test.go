package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/kubetui/kubetui/internal/kubeclient/fake"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

func TestPodPoller_MergesAcrossNamespaces(t *testing.T) {
	client := fake.New()
	client.Tables["api/v1/namespaces/ns1/pods"] = table.KubeTable{
		Header: []string{"NAME", "AGE"},
		Rows:   []table.Row{{Namespace: "ns1", Name: "p1", Cells: []string{"p1", "1m"}}},
	}
	client.Tables["api/v1/namespaces/ns2/pods"] = table.KubeTable{
		Header: []string{"NAME", "AGE"},
		Rows:   []table.Row{{Namespace: "ns2", Name: "p2", Cells: []string{"p2", "2m"}}},
	}

	shared := state.NewShared([]string{"ns1", "ns2"}, nil)
	life := worker.NewLifecycle(context.Background())

	var got table.KubeTable
	done := make(chan struct{}, 1)
	p := NewPod(log.NewNopLogger(), client, shared, life, func(tb table.KubeTable, err error) {
		require.NoError(t, err)
		got = tb
		select {
		case done <- struct{}{}:
		default:
		}
	})
	p.Interval = time.Millisecond
	go p.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll result")
	}
	life.Terminate()

	require.Equal(t, []string{"Namespace", "NAME", "AGE"}, got.Header)
	require.Len(t, got.Rows, 2)
	require.Equal(t, []string{"ns1", "p1", "1m"}, got.Rows[0].Cells)
	require.Equal(t, []string{"ns2", "p2", "2m"}, got.Rows[1].Cells)
}

func TestPodPoller_EmptyNamespaces(t *testing.T) {
	client := fake.New()
	shared := state.NewShared(nil, nil)
	life := worker.NewLifecycle(context.Background())

	done := make(chan table.KubeTable, 1)
	p := NewPod(log.NewNopLogger(), client, shared, life, func(tb table.KubeTable, err error) {
		require.NoError(t, err)
		select {
		case done <- tb:
		default:
		}
	})
	p.Interval = time.Millisecond
	go p.Run()

	select {
	case tb := <-done:
		require.Empty(t, tb.Rows)
		require.Empty(t, tb.Header)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	life.Terminate()
}

func TestPodPoller_SingleNamespaceNoNamespaceColumn(t *testing.T) {
	client := fake.New()
	client.Tables["api/v1/namespaces/ns1/pods"] = table.KubeTable{
		Header: []string{"NAME"},
		Rows:   []table.Row{{Namespace: "ns1", Name: "p1", Cells: []string{"p1"}}},
	}
	shared := state.NewShared([]string{"ns1"}, nil)
	life := worker.NewLifecycle(context.Background())

	done := make(chan table.KubeTable, 1)
	p := NewPod(log.NewNopLogger(), client, shared, life, func(tb table.KubeTable, err error) {
		require.NoError(t, err)
		select {
		case done <- tb:
		default:
		}
	})
	p.Interval = time.Millisecond
	go p.Run()

	select {
	case tb := <-done:
		require.Equal(t, []string{"NAME"}, tb.Header)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	life.Terminate()
}

func TestPodPoller_StopsOnTerminate(t *testing.T) {
	client := fake.New()
	shared := state.NewShared(nil, nil)
	life := worker.NewLifecycle(context.Background())
	p := NewPod(log.NewNopLogger(), client, shared, life, func(table.KubeTable, error) {})
	p.Interval = time.Millisecond

	resultCh := make(chan worker.Result, 1)
	go func() { resultCh <- p.Run() }()

	life.Terminate()
	select {
	case r := <-resultCh:
		require.True(t, r.Terminated)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestFetchTablesPropagatesError(t *testing.T) {
	client := fake.New()
	client.TableErr["api/v1/namespaces/ns1/pods"] = fmt.Errorf("boom")
	shared := state.NewShared([]string{"ns1"}, nil)
	life := worker.NewLifecycle(context.Background())

	errCh := make(chan error, 1)
	p := NewPod(log.NewNopLogger(), client, shared, life, func(_ table.KubeTable, err error) {
		select {
		case errCh <- err:
		default:
		}
	})
	p.Interval = time.Millisecond
	go p.Run()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	life.Terminate()
}

package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/kubeclient/fake"
	"github.com/kubetui/kubetui/internal/message"
)

// txRecorder captures every message the controller sends, in order,
// without ever blocking the sender (the controller's dispatch loop and
// its background pollers all call Tx synchronously).
type txRecorder struct {
	mu  sync.Mutex
	all []interface{}
}

func (r *txRecorder) send(m interface{}) {
	r.mu.Lock()
	r.all = append(r.all, m)
	r.mu.Unlock()
}

func (r *txRecorder) restoreContexts() []message.RestoreContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.RestoreContext
	for _, m := range r.all {
		if rc, ok := m.(message.RestoreContext); ok {
			out = append(out, rc)
		}
	}
	return out
}

func (r *txRecorder) restoreAPIs() []message.RestoreAPIs {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.RestoreAPIs
	for _, m := range r.all {
		if ra, ok := m.(message.RestoreAPIs); ok {
			out = append(out, ra)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

// TestController_ContextSwitchPreservesPerContextState is spec.md §8
// scenario 2: selections made in context A must still be there in
// RestoreContext/RestoreAPIs the next time A becomes active, even after
// a trip through context B.
func TestController_ContextSwitchPreservesPerContextState(t *testing.T) {
	clients := map[string]kubeclient.Interface{
		"a": fake.New(),
		"b": fake.New(),
	}

	rx := make(chan interface{}, 64)
	rec := &txRecorder{}

	ctrl := New(Config{
		Logger:         log.NewNopLogger(),
		Rx:             rx,
		Tx:             rec.send,
		Store:          NewStore(),
		ResolveClient:  func(name string) (kubeclient.Interface, error) { return clients[name], nil },
		ListContexts:   func() []string { return []string{"a", "b"} },
		InitialContext: "a",
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ctrl.Run(ctx) }()

	waitFor(t, func() bool { return len(rec.restoreContexts()) >= 1 })

	rx <- message.NamespaceSetRequest{Namespaces: []string{"a1", "a2"}}
	rx <- message.ApiSetRequest{Resources: []apiresource.ApiResource{apiresource.NewAPI("pods", "v1", apiresource.Namespaced)}}

	// Give the dispatch loop a moment to apply both writes before
	// switching contexts (shared-state policy: writes are observed by
	// the next tick/read, not instantaneously, but the dispatch loop
	// itself processes rx messages strictly in order).
	time.Sleep(50 * time.Millisecond)

	rx <- message.ContextSwitchRequest{Context: "b"}
	waitFor(t, func() bool { return len(rec.restoreContexts()) >= 2 })

	rx <- message.NamespaceSetRequest{Namespaces: []string{"b1"}}
	time.Sleep(50 * time.Millisecond)

	rx <- message.ContextSwitchRequest{Context: "a"}
	waitFor(t, func() bool { return len(rec.restoreContexts()) >= 3 })

	restores := rec.restoreContexts()
	require.Equal(t, "a", restores[0].Context)
	require.Empty(t, restores[0].Namespaces)

	require.Equal(t, "b", restores[1].Context)
	require.Empty(t, restores[1].Namespaces)

	require.Equal(t, "a", restores[2].Context)
	require.Equal(t, []string{"a1", "a2"}, restores[2].Namespaces)

	apis := rec.restoreAPIs()
	require.Len(t, apis, 3)
	require.Empty(t, apis[1].Resources)
	require.Len(t, apis[2].Resources, 1)
	require.Equal(t, "pods", apis[2].Resources[0].Name)

	rx <- message.Terminated{}
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("controller did not stop after Terminated")
	}
	cancel()
}

// TestController_FilterParseErrorSurfacesAsError covers the Log
// domain's synchronous parse-error path (spec.md §4.5.5, §7): a bad
// query must not start a pipeline, and must be reported on tx instead.
func TestController_FilterParseErrorSurfacesAsError(t *testing.T) {
	client := fake.New()
	rx := make(chan interface{}, 8)
	rec := &txRecorder{}

	ctrl := New(Config{
		Logger:         log.NewNopLogger(),
		Rx:             rx,
		Tx:             rec.send,
		Store:          NewStore(),
		ResolveClient:  func(string) (kubeclient.Interface, error) { return client, nil },
		ListContexts:   func() []string { return []string{"a"} },
		InitialContext: "a",
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ctrl.Run(ctx) }()

	waitFor(t, func() bool { return len(rec.restoreContexts()) >= 1 })

	rx <- message.LogRequest{Query: `labels:app=x deploy/x`}

	waitFor(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		for _, m := range rec.all {
			if _, ok := m.(message.ErrorResponse); ok {
				return true
			}
		}
		return false
	})

	rx <- message.Terminated{}
	select {
	case <-runDone:
	case <-time.After(3 * time.Second):
		t.Fatal("controller did not stop after Terminated")
	}
	cancel()
}

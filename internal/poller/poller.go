// Package poller implements the uniform tick-driven pollers of
// spec.md §4.2: PodPoller, ConfigPoller, NetworkPoller, EventPoller.
// Each is a thin configuration of the same Base loop.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/metrics"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

// DefaultInterval is the 1s tick spec.md §4.2 names as the default.
const DefaultInterval = time.Second

// PathFor builds the list/table request path for one namespace. An
// empty namespace means "cluster-scoped" (no namespace segment).
type PathFor func(namespace string) string

// Base is the shared poller shape. Its Life, Emit, Shared and Client
// fields are the "sole dependency surface" of spec.md §2.3: a
// termination flag (via Lifecycle), tx, the shared target-namespace
// cell, and the kube client.
type Base struct {
	Logger   log.Logger
	Client   kubeclient.Interface
	Shared   *state.Shared
	Life     *worker.Lifecycle
	Interval time.Duration
	Name     string // used in metrics labels and log lines

	PathFor PathFor
	// ClusterScoped, when true, fetches PathFor("") once instead of
	// fanning out per target namespace.
	ClusterScoped bool

	// Emit is called with the merged table (or an error) on every tick.
	Emit func(table.KubeTable, error)
}

// Run is the poller's tick loop (spec.md §4.2): tick, snapshot target
// namespaces, fan out list/table requests in parallel, join, merge,
// emit. Returns when the lifecycle is terminated.
func (b *Base) Run() worker.Result {
	interval := b.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.Life.Done():
			return worker.Terminated()
		case <-ticker.C:
			b.tick()
		}
	}
}

func (b *Base) tick() {
	start := time.Now()
	ctx := b.Life.Context()

	var namespaces []string
	if b.ClusterScoped {
		namespaces = []string{""}
	} else {
		namespaces = b.Shared.Namespaces.Get()
	}

	if len(namespaces) == 0 {
		// Boundary behavior (spec.md §8): empty target namespaces emits
		// an empty table response, not an error.
		b.Emit(table.KubeTable{}, nil)
		metrics.PollerTickDuration(b.Name).Observe(time.Since(start).Seconds())
		return
	}

	results, err := fetchTables(ctx, b.Client, namespaces, b.PathFor)
	if err != nil {
		level.Error(b.Logger).Log("msg", "poller tick failed", "poller", b.Name, "err", err)
		metrics.PollerErrors(b.Name).Inc()
		b.Emit(table.KubeTable{}, err)
		metrics.PollerTickDuration(b.Name).Observe(time.Since(start).Seconds())
		return
	}

	merged := table.Merge(results, false)
	b.Emit(merged, nil)
	metrics.PollerTickDuration(b.Name).Observe(time.Since(start).Seconds())
}

// fetchTables fans the table request out across namespaces in parallel
// and joins all of them, per spec.md §4.2 step 2.
func fetchTables(ctx context.Context, client kubeclient.Interface, namespaces []string, pathFor PathFor) ([]table.NamespaceResult, error) {
	type outcome struct {
		idx    int
		result table.NamespaceResult
		err    error
	}

	outcomes := make(chan outcome, len(namespaces))
	var wg sync.WaitGroup
	for i, ns := range namespaces {
		wg.Add(1)
		go func(i int, ns string) {
			defer wg.Done()
			t, err := client.TableGet(ctx, pathFor(ns))
			outcomes <- outcome{idx: i, result: table.NamespaceResult{Namespace: ns, Table: t}, err: err}
		}(i, ns)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	ordered := make([]table.NamespaceResult, len(namespaces))
	var firstErr error
	for o := range outcomes {
		if o.err != nil && firstErr == nil {
			firstErr = o.err
		}
		ordered[o.idx] = o.result
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return ordered, nil
}

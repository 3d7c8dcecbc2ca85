// Package apipoller implements the ApiPoller of spec.md §4.3: a dual
// tick-rate worker that re-runs full server discovery every 10s and, on
// a 1s tick, fetches and renders tables for whatever resources the user
// has checked in the "list / apis" tab.
package apipoller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/metrics"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

const (
	fastTick = time.Second
	slowTick = 10 * time.Second
)

// headerStyle renders the "[ display-name ]" line in dim color
// (spec.md §4.3), the one piece of terminal styling inside the core.
var headerStyle = lipgloss.NewStyle().Faint(true)

// dim renders one resource's section header.
func dim(displayName string) string {
	return headerStyle.Render(fmt.Sprintf("[ %s ]", displayName))
}

// metricsGroup is the group whose "nodes" and "pods" resources (see
// isMetricsResource) don't support server-side Table and must instead be
// projected from the metrics list schema (spec.md §4.3, and the exact
// projected columns recovered in SPEC_FULL.md from original_source/).
const metricsGroup = "metrics.k8s.io"

// ApiPoller is the dual-tick discovery + target-resource table worker.
type ApiPoller struct {
	Logger log.Logger
	Client kubeclient.Interface
	Shared *state.Shared
	Life   *worker.Lifecycle

	// EmitTable is called with the rendered lines for the fast tick.
	EmitTable func(lines []string, err error)
	// EmitAPIs is called whenever discovery succeeds, refreshing
	// shared.ApiResources wholesale.
	EmitAPIs func(resources []apiresource.ApiResource)

	isError bool // error latch, cleared on next successful discovery
}

// Run drives both tick rates from one loop, per spec.md §4.3: the
// initial discovery happens before entering the loop (so a failure
// there is not retried until the first 10s tick elapses — an explicit
// Open Question in spec.md §9 this implementation resolves by not
// retrying early).
func (p *ApiPoller) Run() worker.Result {
	p.discover()

	fast := time.NewTicker(fastTick)
	defer fast.Stop()
	slow := time.NewTicker(slowTick)
	defer slow.Stop()

	for {
		select {
		case <-p.Life.Done():
			return worker.Terminated()
		case <-fast.C:
			p.pollTargetTables()
		case <-slow.C:
			p.discover()
		}
	}
}

func (p *ApiPoller) discover() {
	start := time.Now()
	ctx := p.Life.Context()
	resources, err := p.Client.Discovery(ctx)
	metrics.DiscoveryDuration().Observe(time.Since(start).Seconds())
	if err != nil {
		level.Error(p.Logger).Log("msg", "api discovery failed", "err", err)
		p.isError = true
		if p.EmitTable != nil {
			p.EmitTable(nil, err)
		}
		return
	}
	p.Shared.ApiResources.Replace(resources)
	if p.EmitAPIs != nil {
		p.EmitAPIs(resources)
	}
	// Error -> ok transition clears the stale-error latch with one
	// explicit empty Ok response (spec.md §4.3, §7, §8).
	if p.isError {
		p.isError = false
		if p.EmitTable != nil {
			p.EmitTable(nil, nil)
		}
	}
}

func (p *ApiPoller) pollTargetTables() {
	targets := p.Shared.TargetApiResources.Get()
	if len(targets) == 0 {
		// Boundary behavior (spec.md §8): nothing emitted on the fast
		// tick when no resources are selected.
		return
	}

	namespaces := p.Shared.Namespaces.Get()
	ctx := p.Life.Context()

	var lines []string
	for _, res := range targets {
		rendered, err := p.renderResource(ctx, res, namespaces)
		if err != nil {
			level.Error(p.Logger).Log("msg", "target api resource table failed", "resource", res.DisplayName(), "err", err)
			if p.EmitTable != nil {
				p.EmitTable(nil, err)
			}
			return
		}
		lines = append(lines, rendered...)
	}
	if p.EmitTable != nil {
		p.EmitTable(lines, nil)
	}
}

func (p *ApiPoller) renderResource(ctx context.Context, res apiresource.ApiResource, namespaces []string) ([]string, error) {
	var results []table.NamespaceResult

	fetch := func(ns string) (table.KubeTable, error) {
		if isMetricsResource(res) {
			return p.fetchMetricsTable(ctx, res, ns)
		}
		return p.Client.TableGet(ctx, res.ListPath(ns))
	}

	if !res.IsNamespaced() || len(namespaces) == 0 {
		t, err := fetch("")
		if err != nil {
			return nil, err
		}
		results = append(results, table.NamespaceResult{Table: t})
	} else {
		for _, ns := range namespaces {
			t, err := fetch(ns)
			if err != nil {
				return nil, err
			}
			results = append(results, table.NamespaceResult{Namespace: ns, Table: t})
		}
	}

	merged := table.Merge(results, false)

	out := []string{dim(res.DisplayName())}
	out = append(out, strings.Join(merged.Header, "\t"))
	for _, row := range merged.Rows {
		out = append(out, strings.Join(row.Cells, "\t"))
	}
	out = append(out, "")
	return out, nil
}

func isMetricsResource(res apiresource.ApiResource) bool {
	return res.Group == metricsGroup && (res.Name == "nodes" || res.Name == "pods")
}

// fetchMetricsTable projects the metrics.k8s.io list schema into Table
// shape, per spec.md §4.3's fallback rule. Column sets are recovered
// from original_source/ (see SPEC_FULL.md).
func (p *ApiPoller) fetchMetricsTable(ctx context.Context, res apiresource.ApiResource, ns string) (table.KubeTable, error) {
	if res.Name == "pods" {
		var list podMetricsList
		if err := p.Client.Get(ctx, res.ListPath(ns), &list); err != nil {
			return table.KubeTable{}, err
		}
		return list.toTable(), nil
	}
	var list nodeMetricsList
	if err := p.Client.Get(ctx, res.ListPath(ns), &list); err != nil {
		return table.KubeTable{}, err
	}
	return list.toTable(ctx, p.Client.Get), nil
}

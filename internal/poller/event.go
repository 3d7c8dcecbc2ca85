package poller

import (
	"fmt"

	"github.com/go-kit/log"

	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

// NewEvent builds the EventPoller: one table push per tick of events in
// the target namespaces, in API server return order (no client-side
// sort, per spec.md §4.4's merge rule).
func NewEvent(logger log.Logger, client kubeclient.Interface, shared *state.Shared, life *worker.Lifecycle, emit func(table.KubeTable, error)) *Base {
	return &Base{
		Logger: logger,
		Client: client,
		Shared: shared,
		Life:   life,
		Name:   "event",
		PathFor: func(ns string) string {
			return fmt.Sprintf("api/v1/namespaces/%s/events", ns)
		},
		Emit: emit,
	}
}

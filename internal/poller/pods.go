package poller

import (
	"fmt"

	"github.com/go-kit/log"

	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

// NewPod builds the PodPoller (spec.md §4.2): one table push per tick
// of every pod in the target namespaces.
func NewPod(logger log.Logger, client kubeclient.Interface, shared *state.Shared, life *worker.Lifecycle, emit func(table.KubeTable, error)) *Base {
	return &Base{
		Logger: logger,
		Client: client,
		Shared: shared,
		Life:   life,
		Name:   "pod",
		PathFor: func(ns string) string {
			return fmt.Sprintf("api/v1/namespaces/%s/pods", ns)
		},
		Emit: emit,
	}
}

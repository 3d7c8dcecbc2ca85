package poller

import (
	"fmt"

	"github.com/go-kit/log"

	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

// NewNetwork builds the NetworkPoller. Its steady table push lists
// Services, the representative "network" resource; Ingress, NetworkPolicy,
// Gateway and HTTPRoute are reached through the per-kind detail workers
// (internal/describe), opened/closed via Network.DetailOpen/Close.
func NewNetwork(logger log.Logger, client kubeclient.Interface, shared *state.Shared, life *worker.Lifecycle, emit func(table.KubeTable, error)) *Base {
	return &Base{
		Logger: logger,
		Client: client,
		Shared: shared,
		Life:   life,
		Name:   "network",
		PathFor: func(ns string) string {
			return fmt.Sprintf("api/v1/namespaces/%s/services", ns)
		},
		Emit: emit,
	}
}

package poller

import (
	"fmt"

	"github.com/go-kit/log"

	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/table"
	"github.com/kubetui/kubetui/internal/worker"
)

// NewConfig builds the ConfigPoller. Its steady table push lists
// ConfigMaps; Secret/ConfigMap *contents* are fetched on demand via the
// Config.Data one-shot request handled inline by the controller
// (spec.md §4.1), not by this poller.
func NewConfig(logger log.Logger, client kubeclient.Interface, shared *state.Shared, life *worker.Lifecycle, emit func(table.KubeTable, error)) *Base {
	return &Base{
		Logger: logger,
		Client: client,
		Shared: shared,
		Life:   life,
		Name:   "config",
		PathFor: func(ns string) string {
			return fmt.Sprintf("api/v1/namespaces/%s/configmaps", ns)
		},
		Emit: emit,
	}
}

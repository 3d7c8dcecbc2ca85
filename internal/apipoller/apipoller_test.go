package apipoller

import (
	"context"
	"errors"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/kubeclient/fake"
	"github.com/kubetui/kubetui/internal/state"
	"github.com/kubetui/kubetui/internal/worker"
)

var errBoom = errors.New("boom")

func TestDiscover_ErrorOkErrorSequence(t *testing.T) {
	client := fake.New()
	shared := state.NewShared(nil, nil)
	life := worker.NewLifecycle(context.Background())

	var tableEvents []string
	p := &ApiPoller{
		Logger: log.NewNopLogger(),
		Client: client,
		Shared: shared,
		Life:   life,
		EmitTable: func(lines []string, err error) {
			if err != nil {
				tableEvents = append(tableEvents, "error")
			} else {
				tableEvents = append(tableEvents, "ok")
			}
		},
	}

	client.DiscoveryErr = errBoom
	p.discover() // error
	client.DiscoveryErr = nil
	client.Discoveries = []apiresource.ApiResource{apiresource.NewAPI("pods", "v1", apiresource.Namespaced)}
	p.discover() // ok (clears latch -> emits empty ok)
	client.DiscoveryErr = errBoom
	p.discover() // error

	require.Equal(t, []string{"error", "ok", "error"}, tableEvents)
}

func TestPollTargetTables_EmptySelectionEmitsNothing(t *testing.T) {
	client := fake.New()
	shared := state.NewShared(nil, nil)
	life := worker.NewLifecycle(context.Background())

	called := false
	p := &ApiPoller{
		Logger:    log.NewNopLogger(),
		Client:    client,
		Shared:    shared,
		Life:      life,
		EmitTable: func([]string, error) { called = true },
	}
	p.pollTargetTables()
	require.False(t, called)
}

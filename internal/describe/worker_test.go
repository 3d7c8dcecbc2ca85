package describe

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/kubetui/kubetui/internal/kubeclient/fake"
	"github.com/kubetui/kubetui/internal/worker"
)

func TestWorker_EmitsStrippedYAMLWithRelatedResources(t *testing.T) {
	svc := newUnstructured("v1", "Service", "ns", "web", map[string]interface{}{"selector": map[string]interface{}{"app": "web"}}, nil)
	svc.Object["metadata"].(map[string]interface{})["resourceVersion"] = "123"
	svc.Object["metadata"].(map[string]interface{})["annotations"] = map[string]interface{}{
		"kubectl.kubernetes.io/last-applied-configuration": "{}",
		"keep-me": "yes",
	}
	pod := newUnstructured("v1", "Pod", "ns", "web-1", nil, map[string]string{"app": "web"})

	client := fake.New().WithDynamic(newDynamicFake(svc, pod))
	life := worker.NewLifecycle(context.Background())

	got := make(chan []string, 1)
	w := &Worker{
		Logger:    log.NewNopLogger(),
		Client:    client,
		Life:      life,
		Interval:  time.Millisecond,
		GVR:       gvrServices,
		Name:      "web",
		Namespace: "ns",
		Related: func(ctx context.Context, subject Object) (map[string][]string, error) {
			r := &Resolver{Client: client, Namespace: "ns"}
			return r.Service(ctx, subject)
		},
		Emit: func(lines []string, err error) {
			require.NoError(t, err)
			select {
			case got <- lines:
			default:
			}
		},
	}

	go w.Run()

	select {
	case lines := <-got:
		out := strings.Join(lines, "\n")
		require.Contains(t, out, "relatedResources")
		require.Contains(t, out, "web-1")
		require.Contains(t, out, "keep-me")
		require.NotContains(t, out, "last-applied-configuration")
		require.NotContains(t, out, "resourceVersion")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for describe tick")
	}

	life.Terminate()
}

package describe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"github.com/kubetui/kubetui/internal/kubeclient/fake"
)

func newUnstructured(apiVersion, kind, namespace, name string, spec map[string]interface{}, labels map[string]string) *unstructured.Unstructured {
	meta := map[string]interface{}{"name": name, "namespace": namespace}
	if labels != nil {
		lm := map[string]interface{}{}
		for k, v := range labels {
			lm[k] = v
		}
		meta["labels"] = lm
	}
	obj := map[string]interface{}{
		"apiVersion": apiVersion,
		"kind":       kind,
		"metadata":   meta,
	}
	if spec != nil {
		obj["spec"] = spec
	}
	return &unstructured.Unstructured{Object: obj}
}

func newDynamicFake(objs ...runtime.Object) *dynamicfake.FakeDynamicClient {
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		gvrServices:        "ServiceList",
		gvrPods:            "PodList",
		gvrIngresses:       "IngressList",
		gvrNetworkPolicies: "NetworkPolicyList",
		gvrGateways:        "GatewayList",
		gvrHTTPRoutes:      "HTTPRouteList",
	}
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, objs...)
}

func TestResolver_Service_FindsSelectedPods(t *testing.T) {
	svc := newUnstructured("v1", "Service", "ns", "web", map[string]interface{}{"selector": map[string]interface{}{"app": "web"}}, nil)
	pod1 := newUnstructured("v1", "Pod", "ns", "web-1", nil, map[string]string{"app": "web"})
	pod2 := newUnstructured("v1", "Pod", "ns", "db-1", nil, map[string]string{"app": "db"})

	client := fake.New().WithDynamic(newDynamicFake(pod1, pod2))
	r := &Resolver{Client: client, Namespace: "ns"}

	related, err := r.Service(context.Background(), svc.Object)
	require.NoError(t, err)
	require.Equal(t, []string{"web-1"}, related["pods"])
}

func TestResolver_Ingress_ResolvesServicesAndPods(t *testing.T) {
	ing := newUnstructured("networking.k8s.io/v1", "Ingress", "ns", "ing1", map[string]interface{}{
		"rules": []interface{}{
			map[string]interface{}{
				"http": map[string]interface{}{
					"paths": []interface{}{
						map[string]interface{}{
							"backend": map[string]interface{}{
								"service": map[string]interface{}{"name": "web"},
							},
						},
					},
				},
			},
		},
	}, nil)
	svc := newUnstructured("v1", "Service", "ns", "web", map[string]interface{}{"selector": map[string]interface{}{"app": "web"}}, nil)
	other := newUnstructured("v1", "Service", "ns", "other", map[string]interface{}{"selector": map[string]interface{}{"app": "other"}}, nil)
	pod := newUnstructured("v1", "Pod", "ns", "web-1", nil, map[string]string{"app": "web"})

	client := fake.New().WithDynamic(newDynamicFake(svc, other, pod))
	r := &Resolver{Client: client, Namespace: "ns"}

	related, err := r.Ingress(context.Background(), ing.Object)
	require.NoError(t, err)
	require.Equal(t, []string{"web"}, related["services"])
	require.Equal(t, []string{"web-1"}, related["pods"])
}

func TestResolver_Pod_ReverseMatchesServices(t *testing.T) {
	pod := newUnstructured("v1", "Pod", "ns", "web-1", nil, map[string]string{"app": "web", "ver": "v1"})
	svc := newUnstructured("v1", "Service", "ns", "web", map[string]interface{}{"selector": map[string]interface{}{"app": "web"}}, nil)

	client := fake.New().WithDynamic(newDynamicFake(svc))
	r := &Resolver{Client: client, Namespace: "ns"}

	related, err := r.Pod(context.Background(), pod.Object)
	require.NoError(t, err)
	require.Equal(t, []string{"web"}, related["services"])
}

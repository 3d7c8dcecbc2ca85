package describe

import (
	"fmt"

	"github.com/go-kit/log"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/worker"
)

// kindGVRs maps the kind names the Network detail tab opens (spec.md
// §4.6) to the GVR the dynamic client fetches the subject through.
var kindGVRs = map[string]schema.GroupVersionResource{
	"pod":           gvrPods,
	"service":       gvrServices,
	"ingress":       gvrIngresses,
	"networkpolicy": gvrNetworkPolicies,
	"gateway":       gvrGateways,
	"httproute":     gvrHTTPRoutes,
}

// relatedFor returns the Resolver method wired to kind, or nil when the
// kind has no related-resource computation (spec.md §4.7 names wirings
// only for the kinds in kindGVRs).
func relatedFor(kind string, client kubeclient.Interface, namespace string) RelatedFunc {
	r := &Resolver{Client: client, Namespace: namespace}
	switch kind {
	case "pod":
		return r.Pod
	case "service":
		return r.Service
	case "ingress":
		return r.Ingress
	case "networkpolicy":
		return r.NetworkPolicy
	case "gateway":
		return r.Gateway
	case "httproute":
		return r.HTTPRoute
	default:
		return nil
	}
}

// NewForKind builds the Worker for one open "detail" request (spec.md
// §4.6: "one subclass per kind"), resolving kind to its GVR and related-
// resources wiring. Returns an error for an unrecognized kind rather than
// silently describing nothing (spec.md §7's "missing resource" error
// kind).
func NewForKind(logger log.Logger, client kubeclient.Interface, life *worker.Lifecycle, kind, name, namespace string, emit func([]string, error)) (*Worker, error) {
	gvr, ok := kindGVRs[kind]
	if !ok {
		return nil, fmt.Errorf("describe: unknown kind %q", kind)
	}
	return &Worker{
		Logger:    logger,
		Client:    client,
		Life:      life,
		Interval:  TickInterval,
		GVR:       gvr,
		Name:      name,
		Namespace: namespace,
		Related:   relatedFor(kind, client, namespace),
		Emit:      emit,
	}, nil
}

package describe

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/pkg/errors"

	"github.com/kubetui/kubetui/internal/kubeclient"
)

// Resolver computes the relatedResources map for one subject object,
// per spec.md §4.7's specific wirings. One method per subject kind;
// each fetches only the candidate lists it needs via the dynamic
// client (Gateway API types have no generated clientset, so every
// related kind goes through the same path for uniformity).
type Resolver struct {
	Client    kubeclient.Interface
	Namespace string
}

func (r *Resolver) list(ctx context.Context, gvr schema.GroupVersionResource) ([]Object, error) {
	list, err := r.Client.Dynamic().Resource(gvr).Namespace(r.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", gvr.Resource)
	}
	out := make([]Object, len(list.Items))
	for i, item := range list.Items {
		out[i] = item.Object
	}
	return out, nil
}

// Ingress resolves an Ingress's related Services (by backend name) and
// Pods (by chaining through those Services' selectors).
func (r *Resolver) Ingress(ctx context.Context, subject Object) (map[string][]string, error) {
	services, err := r.list(ctx, gvrServices)
	if err != nil {
		return nil, err
	}
	serviceNames := ingressBackendServiceNames(subject)
	relatedServiceNames := FilterByNames(services, serviceNames)

	pods, err := r.list(ctx, gvrPods)
	if err != nil {
		return nil, err
	}
	var podNames []string
	seen := map[string]bool{}
	for _, svc := range services {
		if !contains(relatedServiceNames, nameOf(svc)) {
			continue
		}
		for _, p := range FilterByLabelsField(pods, serviceSelector(svc), labelsOf) {
			if !seen[p] {
				seen[p] = true
				podNames = append(podNames, p)
			}
		}
	}

	return map[string][]string{"services": relatedServiceNames, "pods": podNames}, nil
}

// Service resolves a Service's related Pods by label-selector containment.
func (r *Resolver) Service(ctx context.Context, subject Object) (map[string][]string, error) {
	pods, err := r.list(ctx, gvrPods)
	if err != nil {
		return nil, err
	}
	return map[string][]string{"pods": FilterByLabelsField(pods, serviceSelector(subject), labelsOf)}, nil
}

// NetworkPolicy resolves a NetworkPolicy's related Pods by podSelector.
func (r *Resolver) NetworkPolicy(ctx context.Context, subject Object) (map[string][]string, error) {
	pods, err := r.list(ctx, gvrPods)
	if err != nil {
		return nil, err
	}
	return map[string][]string{"pods": FilterByLabelsField(pods, networkPolicyPodSelector(subject), labelsOf)}, nil
}

// Gateway resolves a Gateway's related HTTPRoutes by parentRefs.
func (r *Resolver) Gateway(ctx context.Context, subject Object) (map[string][]string, error) {
	routes, err := r.list(ctx, gvrHTTPRoutes)
	if err != nil {
		return nil, err
	}
	name := nameOf(subject)
	var names []string
	for _, route := range routes {
		if contains(httpRouteParentGatewayNames(route), name) {
			names = append(names, nameOf(route))
		}
	}
	return map[string][]string{"httpRoutes": names}, nil
}

// HTTPRoute resolves an HTTPRoute's related Services by backendRefs.
func (r *Resolver) HTTPRoute(ctx context.Context, subject Object) (map[string][]string, error) {
	services, err := r.list(ctx, gvrServices)
	if err != nil {
		return nil, err
	}
	return map[string][]string{"services": FilterByNames(services, httpRouteBackendServiceNames(subject))}, nil
}

// Pod resolves a Pod's related Services, Ingresses, and NetworkPolicies
// by reverse selector containment against the pod's own labels.
func (r *Resolver) Pod(ctx context.Context, subject Object) (map[string][]string, error) {
	labels := labelsOf(subject)

	services, err := r.list(ctx, gvrServices)
	if err != nil {
		return nil, err
	}
	serviceNames := FilterBySelectorField(services, labels, serviceSelector)

	netpols, err := r.list(ctx, gvrNetworkPolicies)
	if err != nil {
		return nil, err
	}
	netpolNames := FilterBySelectorField(netpols, labels, networkPolicyPodSelector)

	ingresses, err := r.list(ctx, gvrIngresses)
	if err != nil {
		return nil, err
	}
	var ingressNames []string
	for _, ing := range ingresses {
		backends := ingressBackendServiceNames(ing)
		for _, svc := range services {
			if contains(backends, nameOf(svc)) && containsAll(serviceSelector(svc), labels) {
				ingressNames = append(ingressNames, nameOf(ing))
				break
			}
		}
	}

	return map[string][]string{
		"services":        serviceNames,
		"networkPolicies": netpolNames,
		"ingresses":       ingressNames,
	}, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

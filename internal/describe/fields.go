package describe

import "k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

// serviceSelector reads a Service's spec.selector.
func serviceSelector(o Object) map[string]string {
	v, _, _ := unstructured.NestedStringMap(o, "spec", "selector")
	return v
}

// networkPolicyPodSelector reads a NetworkPolicy's spec.podSelector.matchLabels.
func networkPolicyPodSelector(o Object) map[string]string {
	v, _, _ := unstructured.NestedStringMap(o, "spec", "podSelector", "matchLabels")
	return v
}

// ingressBackendServiceNames collects spec.rules[].http.paths[].backend.service.name.
func ingressBackendServiceNames(o Object) []string {
	rules, _, _ := unstructured.NestedSlice(o, "spec", "rules")
	var names []string
	for _, r := range rules {
		rule, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		paths, _, _ := unstructured.NestedSlice(rule, "http", "paths")
		for _, p := range paths {
			path, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			if name, _, _ := unstructured.NestedString(path, "backend", "service", "name"); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// httpRouteBackendServiceNames collects rules[].backendRefs[].name.
func httpRouteBackendServiceNames(o Object) []string {
	rules, _, _ := unstructured.NestedSlice(o, "spec", "rules")
	var names []string
	for _, r := range rules {
		rule, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		refs, _, _ := unstructured.NestedSlice(rule, "backendRefs")
		for _, ref := range refs {
			m, ok := ref.(map[string]interface{})
			if !ok {
				continue
			}
			if name, _, _ := unstructured.NestedString(m, "name"); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// httpRouteParentGatewayNames collects parentRefs[].name.
func httpRouteParentGatewayNames(o Object) []string {
	refs, _, _ := unstructured.NestedSlice(o, "spec", "parentRefs")
	var names []string
	for _, ref := range refs {
		m, ok := ref.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _, _ := unstructured.NestedString(m, "name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

package describe

import "k8s.io/apimachinery/pkg/runtime/schema"

// GVRs for the related-resource kinds spec.md §4.7 names. Gateway API
// types have no generated clientset, so every kind here is fetched
// through the dynamic client for uniformity.
var (
	gvrServices        = schema.GroupVersionResource{Version: "v1", Resource: "services"}
	gvrPods            = schema.GroupVersionResource{Version: "v1", Resource: "pods"}
	gvrIngresses       = schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"}
	gvrNetworkPolicies = schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "networkpolicies"}
	gvrGateways        = schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "gateways"}
	gvrHTTPRoutes      = schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "httproutes"}
)

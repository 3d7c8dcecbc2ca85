package kubeclient

import (
	"context"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubetui/kubetui/internal/apiresource"
)

// Discovery implements spec.md §4.3's discovery algorithm: call api/
// (core versions) + apis/ (groups), fetch each (group, version)'s
// APIResourceList, keep resources whose verbs contain "list", and record
// preferred_version per group. It is built on client-go's
// discovery.DiscoveryInterface, which already implements the exact wire
// conventions spec.md §6 names (APIResourceList{groupVersion,
// resources:[{name,namespaced,verbs[]}]}).
func (c *Client) Discovery(ctx context.Context) ([]apiresource.ApiResource, error) {
	disco := c.clientset.Discovery()

	groups, err := disco.ServerGroups()
	if err != nil {
		return nil, errors.Wrap(err, "list server groups")
	}

	preferred := map[string]string{}
	for _, g := range groups.Groups {
		if g.Name == "" {
			continue // core group has no preferred-version concept here
		}
		preferred[g.Name] = g.PreferredVersion.Version
	}

	var out []apiresource.ApiResource

	// Core group: api/{version}.
	coreList, err := disco.ServerResourcesForGroupVersion("v1")
	if err != nil {
		return nil, errors.Wrap(err, "list core resources")
	}
	out = append(out, resourcesFromList(coreList, "", "v1", false)...)

	// Non-core groups: apis/{group}/{version}.
	for _, g := range groups.Groups {
		if g.Name == "" {
			continue
		}
		for _, v := range g.Versions {
			list, err := disco.ServerResourcesForGroupVersion(v.GroupVersion)
			if err != nil {
				// A single group/version failing to resolve is a
				// transient/schema error (spec.md §7); skip it rather
				// than failing the whole discovery pass.
				continue
			}
			isPreferred := v.Version == preferred[g.Name]
			out = append(out, resourcesFromList(list, g.Name, v.Version, isPreferred)...)
		}
	}

	apiresource.SortResources(out)
	return out, nil
}

func resourcesFromList(list *metav1.APIResourceList, group, version string, preferred bool) []apiresource.ApiResource {
	var out []apiresource.ApiResource
	for _, r := range list.APIResources {
		if !hasVerb(r.Verbs, "list") {
			continue
		}
		scope := apiresource.Cluster
		if r.Namespaced {
			scope = apiresource.Namespaced
		}
		if group == "" {
			out = append(out, apiresource.NewAPI(r.Name, version, scope))
		} else {
			out = append(out, apiresource.NewAPIs(r.Name, group, version, preferred, scope))
		}
	}
	return out
}

func hasVerb(verbs metav1.Verbs, want string) bool {
	for _, v := range verbs {
		if v == want {
			return true
		}
	}
	return false
}

// Package apiresource defines the ApiResource tagged type used throughout
// the discovery and table-merge pipeline.
package apiresource

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Scope is the namespacing scope of a resource kind.
type Scope string

const (
	Namespaced Scope = "Namespaced"
	Cluster    Scope = "Cluster"
)

// Kind tags which variant an ApiResource holds.
type Kind string

const (
	KindAPI  Kind = "api"  // core-group resource, URL prefix api/{v}
	KindAPIs Kind = "apis" // non-core resource, URL prefix apis/{g}/{v}
)

// ApiResource identifies one server-advertised group/version/kind the user
// can select for the "list / apis" tab. It is a tagged sum: Kind selects
// which fields are meaningful, mirroring the source's two-constructor enum
// (Api{...} / Apis{...}).
type ApiResource struct {
	Kind Kind `json:"kind"`

	// Name is the plural resource name, e.g. "pods".
	Name  string `json:"name"`
	Scope Scope  `json:"scope"`

	// Version is always set. Group is empty for KindAPI.
	Version string `json:"version,omitempty"`
	Group   string `json:"group,omitempty"`

	// PreferredVersion is only meaningful for KindAPIs; it records whether
	// Version is the group's preferred version.
	PreferredVersion bool `json:"preferredVersion,omitempty"`
}

// IsNamespaced reports whether the resource is namespace-scoped.
func (a ApiResource) IsNamespaced() bool {
	return a.Scope == Namespaced
}

// APIURL returns the discovery/list URL prefix for the resource's
// group/version, per spec.md §6: "apis/{group}/{version}" unless
// group == "", in which case "api/{version}".
func (a ApiResource) APIURL() string {
	if a.Group == "" {
		return fmt.Sprintf("api/%s", a.Version)
	}
	return fmt.Sprintf("apis/%s/%s", a.Group, a.Version)
}

// ListPath returns the full list/table path for the resource, scoped to
// namespace when ns is non-empty and the resource is namespaced.
func (a ApiResource) ListPath(ns string) string {
	base := a.APIURL()
	if ns != "" && a.IsNamespaced() {
		return fmt.Sprintf("%s/namespaces/%s/%s", base, ns, a.Name)
	}
	return fmt.Sprintf("%s/%s", base, a.Name)
}

// DisplayName renders the presentation string used both for user-facing
// lists and as the total order over ApiResource values: core resources
// display as their plural name; non-core resources display as
// "plural.group (version)", with the preferred version prefixed by "*".
func (a ApiResource) DisplayName() string {
	if a.Kind == KindAPI || a.Group == "" {
		return a.Name
	}
	version := a.Version
	if a.PreferredVersion {
		version = "*" + version
	}
	return fmt.Sprintf("%s.%s (%s)", a.Name, a.Group, version)
}

// Less defines the total order on ApiResource: lexicographic on the
// display string.
func (a ApiResource) Less(other ApiResource) bool {
	return a.DisplayName() < other.DisplayName()
}

// Key returns the stable JSON serialization used as the opaque UI
// metadata value under the "key" field (spec.md §3, "ApiResource
// serialization"). Field order in the struct above is fixed, so
// encoding/json's deterministic struct-field ordering gives a stable
// key without needing a custom canonicalizer.
func (a ApiResource) Key() (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", errors.Wrap(err, "marshal api resource key")
	}
	return string(b), nil
}

// ParseKey reverses Key, recovering the typed selection the controller
// needs when the UI echoes metadata["key"] back.
func ParseKey(key string) (ApiResource, error) {
	var a ApiResource
	if err := json.Unmarshal([]byte(key), &a); err != nil {
		return ApiResource{}, errors.Wrap(err, "parse api resource key")
	}
	return a, nil
}

// NewAPI constructs a core-group ApiResource.
func NewAPI(name, version string, scope Scope) ApiResource {
	return ApiResource{Kind: KindAPI, Name: name, Version: version, Scope: scope}
}

// NewAPIs constructs a non-core ApiResource.
func NewAPIs(name, group, version string, preferred bool, scope Scope) ApiResource {
	return ApiResource{
		Kind:             KindAPIs,
		Name:             name,
		Group:            group,
		Version:          version,
		PreferredVersion: preferred,
		Scope:            scope,
	}
}

// SortResources sorts a slice of ApiResource in place by display order.
func SortResources(rs []ApiResource) {
	// Simple insertion sort: discovery snapshots are small (tens to low
	// hundreds of entries), and we need a stable sort so resources with
	// identical display names preserve discovery order.
	for i := 1; i < len(rs); i++ {
		j := i
		for j > 0 && rs[j].Less(rs[j-1]) {
			rs[j], rs[j-1] = rs[j-1], rs[j]
			j--
		}
	}
}

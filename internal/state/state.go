// Package state implements the three process-wide shared-state cells
// described in spec.md §2.2 and §5: TargetNamespaces, TargetApiResources,
// and ApiResources. Each cell is a read-many/write-one guarded value.
// The event controller writes TargetNamespaces and TargetApiResources,
// the ApiPoller replaces ApiResources, and the other pollers are
// read-only observers; no caller holds a lock during I/O.
package state

import (
	"sync"

	"github.com/kubetui/kubetui/internal/apiresource"
)

// Namespaces is the shared TargetNamespaces cell: the ordered list of
// namespaces the user selected.
type Namespaces struct {
	mu   sync.RWMutex
	list []string
}

// NewNamespaces seeds the cell, e.g. from the context's kubeconfig
// default namespace at generation Init.
func NewNamespaces(seed []string) *Namespaces {
	return &Namespaces{list: cloneStrings(seed)}
}

// Get returns a snapshot copy of the current namespace list. Callers must
// not hold onto the lock across I/O; returning a copy makes that
// impossible to get wrong.
func (n *Namespaces) Get() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return cloneStrings(n.list)
}

// Set replaces the namespace list wholesale. Only the event controller
// calls this.
func (n *Namespaces) Set(list []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = cloneStrings(list)
}

// TargetApiResources is the shared cell of user-checked ApiResource
// selections for the "list / apis" tab.
type TargetApiResources struct {
	mu   sync.RWMutex
	list []apiresource.ApiResource
}

func NewTargetApiResources(seed []apiresource.ApiResource) *TargetApiResources {
	return &TargetApiResources{list: cloneResources(seed)}
}

func (t *TargetApiResources) Get() []apiresource.ApiResource {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneResources(t.list)
}

func (t *TargetApiResources) Set(list []apiresource.ApiResource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = cloneResources(list)
}

// ApiResources is the shared full-discovery snapshot, refreshed
// wholesale every 10s by the ApiPoller's inner tick.
type ApiResources struct {
	mu   sync.RWMutex
	list []apiresource.ApiResource
}

func NewApiResources() *ApiResources {
	return &ApiResources{}
}

func (a *ApiResources) Get() []apiresource.ApiResource {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneResources(a.list)
}

// Replace swaps the entire snapshot. Per spec.md §3, the snapshot is
// replaced wholesale, never partially mutated.
func (a *ApiResources) Replace(list []apiresource.ApiResource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list = cloneResources(list)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneResources(in []apiresource.ApiResource) []apiresource.ApiResource {
	out := make([]apiresource.ApiResource, len(in))
	copy(out, in)
	return out
}

// Shared bundles the three cells. Every poller is constructed with it
// alongside its own Lifecycle, emit sink, and kube client (spec.md
// §2.3's "Poller base"). Kept here (rather than in package poller) so that package
// controller can build one value per generation without importing the
// poller package's tx/message types.
type Shared struct {
	Namespaces         *Namespaces
	TargetApiResources *TargetApiResources
	ApiResources       *ApiResources
}

// NewShared allocates a fresh set of cells seeded from a prior
// generation's store entry (or defaults, at first run).
func NewShared(namespaces []string, targetResources []apiresource.ApiResource) *Shared {
	return &Shared{
		Namespaces:         NewNamespaces(namespaces),
		TargetApiResources: NewTargetApiResources(targetResources),
		ApiResources:       NewApiResources(),
	}
}

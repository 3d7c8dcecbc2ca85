package controller

import (
	"sync"

	"github.com/kubetui/kubetui/internal/apiresource"
	"github.com/kubetui/kubetui/internal/kubeclient"
)

// KubeState is one context's remembered selection (spec.md §3's Store
// entry): the client for that context plus whatever the user had
// selected there last.
type KubeState struct {
	Client             kubeclient.Interface
	Namespaces         []string
	TargetApiResources []apiresource.ApiResource
}

// Store is the context_name -> KubeState map of spec.md §3. It is
// owned by the event controller and never shared with workers;
// mutated only between generations, never while a generation's
// workers are live.
type Store struct {
	mu     sync.Mutex
	states map[string]KubeState
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{states: make(map[string]KubeState)}
}

// Get returns the remembered state for name, if any.
func (s *Store) Get(name string) (KubeState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[name]
	return st, ok
}

// Set records (or replaces) the state for name.
func (s *Store) Set(name string, st KubeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[name] = st
}

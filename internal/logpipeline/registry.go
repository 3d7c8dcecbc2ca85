package logpipeline

import (
	"sync"
	"sync/atomic"

	"github.com/kubetui/kubetui/internal/worker"
)

// TaskId identifies one container's log-follow task (spec.md §3).
type TaskId struct {
	Namespace string
	Pod       string
	Container string
}

// TaskState is the registry's bookkeeping for one live ContainerLogStreamer.
// PodUID is carried separately from PodName so that a pod deleted and
// recreated under the same name doesn't have its tasks misattributed.
type TaskState struct {
	Life          *worker.Lifecycle
	PodUID        string
	PodName       string
	ContainerName string
	ContainerID   string

	// containerTerminated latches whether the container's last observed
	// status was Terminated, distinct from Life's own cancellation: a
	// container can be Terminated yet its streamer still draining the
	// last bytes of the log.
	containerTerminated atomic.Bool
}

// SetContainerTerminated updates the latch spawn_tasks refreshes on every
// pod watch event that reports the same container_id (spec.md §4.5.1
// step 4).
func (s *TaskState) SetContainerTerminated(v bool) { s.containerTerminated.Store(v) }

// ContainerTerminated reports the latched value.
func (s *TaskState) ContainerTerminated() bool { return s.containerTerminated.Load() }

// Registry is the TaskId -> TaskState map of spec.md §3, enforcing "at
// most one live task per TaskId" and "dropping a TaskState aborts the
// task and sets is_terminated".
type Registry struct {
	mu    sync.Mutex
	tasks map[TaskId]*TaskState
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[TaskId]*TaskState)}
}

// Get returns the current task for id, if any.
func (r *Registry) Get(id TaskId) (*TaskState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.tasks[id]
	return s, ok
}

// Replace aborts whatever task currently occupies id (if any) and
// installs state in its place. Spawning a ContainerLogStreamer for the
// new state is the caller's responsibility before calling Replace, so
// that the old stream's abort and the new stream's start don't race on
// shared resources keyed by id.
func (r *Registry) Replace(id TaskId, state *TaskState) {
	r.mu.Lock()
	old := r.tasks[id]
	r.tasks[id] = state
	r.mu.Unlock()

	if old != nil {
		old.Life.Terminate()
	}
}

// Remove drops the task at id, aborting it and marking it terminated.
// No-op if nothing is registered there.
func (r *Registry) Remove(id TaskId) {
	r.mu.Lock()
	old := r.tasks[id]
	delete(r.tasks, id)
	r.mu.Unlock()

	if old != nil {
		old.Life.Terminate()
	}
}

// RemoveByPod removes every task whose PodUID matches uid, or whose
// PodName matches name when uid is empty (spec.md §4.5.1's abort_tasks:
// uid may be unavailable on a Deleted event that only carries a name).
func (r *Registry) RemoveByPod(uid, name string) {
	r.mu.Lock()
	var dead []*TaskState
	for id, s := range r.tasks {
		match := false
		if uid != "" {
			match = s.PodUID == uid
		} else {
			match = s.PodName == name
		}
		if match {
			dead = append(dead, s)
			delete(r.tasks, id)
		}
	}
	r.mu.Unlock()

	for _, s := range dead {
		s.Life.Terminate()
	}
}

// Len reports the number of live tasks, for tests and diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

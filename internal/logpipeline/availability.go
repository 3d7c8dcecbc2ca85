package logpipeline

// ContainerStatus is the subset of corev1.ContainerStatus the
// log-availability rule needs. ContainerID is the status's own
// top-level field (populated once the container has run at least
// once); State/LastState carry the Waiting/Running/Terminated union.
type ContainerStatus struct {
	Name        string
	ContainerID string
	State       ContainerState
	LastState   ContainerState
}

// ContainerState mirrors corev1.ContainerState's three-way union,
// trimmed to what the availability rule reads.
type ContainerState struct {
	Running               bool
	Terminated            bool
	TerminatedContainerID string
}

// AvailableContainerID implements the log-availability rule of
// spec.md §4.5.2: Kubernetes leaves container_id empty during
// crash-loop waits; the previous terminated state's ID is still
// readable, so it is consulted before giving up.
func AvailableContainerID(s ContainerStatus) (string, bool) {
	switch {
	case s.State.Running:
		return s.ContainerID, true
	case s.State.Terminated:
		if s.State.TerminatedContainerID != "" {
			return s.State.TerminatedContainerID, true
		}
		if s.LastState.Terminated && s.LastState.TerminatedContainerID != "" {
			return s.LastState.TerminatedContainerID, true
		}
		return "", false
	default:
		if s.LastState.Terminated && s.LastState.TerminatedContainerID != "" {
			return s.LastState.TerminatedContainerID, true
		}
		return "", false
	}
}

package logpipeline

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/kubetui/kubetui/internal/filter"
	"github.com/kubetui/kubetui/internal/kubeclient"
	"github.com/kubetui/kubetui/internal/worker"
)

// PodWatcher is the root of the log pipeline (spec.md §4.5.1): it
// watches pods in the selected namespace and, for each pod event,
// spawns or aborts per-container ContainerLogStreamers.
type PodWatcher struct {
	Logger log.Logger
	Client kubeclient.Interface
	Life   *worker.Lifecycle

	Namespace string
	Query     *filter.Query

	Buffer    *LogBuffer
	Registry  *Registry
	EmitError func(error)
}

// Run watches pods until the lifecycle terminates, reconnecting with
// resourceVersion=0 on every disconnect (spec.md §4.5.1).
func (w *PodWatcher) Run() worker.Result {
	ctx := w.Life.Context()
	for {
		if w.Life.IsTerminated() {
			return worker.Terminated()
		}
		if err := w.watchOnce(ctx); err != nil {
			level.Error(w.Logger).Log("msg", "pod watch failed, reconnecting", "namespace", w.Namespace, "err", err)
			if w.EmitError != nil {
				w.EmitError(err)
			}
		}
	}
}

func (w *PodWatcher) watchOnce(ctx context.Context) error {
	opts := metav1.ListOptions{ResourceVersion: "0"}
	if w.Query != nil {
		opts.LabelSelector = w.Query.LabelSelector
		opts.FieldSelector = w.Query.FieldSelector
	}

	path := fmt.Sprintf("api/v1/namespaces/%s/pods", w.Namespace)
	iface, err := w.Client.Watch(ctx, path, opts)
	if err != nil {
		return err
	}
	defer iface.Stop()

	for {
		select {
		case <-w.Life.Done():
			return nil
		case event, ok := <-iface.ResultChan():
			if !ok {
				return nil // disconnected; caller reconnects
			}
			w.handleEvent(ctx, event)
		}
	}
}

func (w *PodWatcher) handleEvent(ctx context.Context, event watch.Event) {
	switch event.Type {
	case watch.Added, watch.Modified:
		pod, err := decodePod(event.Object)
		if err != nil {
			level.Error(w.Logger).Log("msg", "pod decode failed", "err", err)
			return
		}
		if w.Query != nil && !w.Query.MatchesPod(pod.Name) {
			return
		}
		w.spawnTasks(ctx, pod)
	case watch.Deleted:
		pod, err := decodePod(event.Object)
		if err != nil {
			level.Error(w.Logger).Log("msg", "pod decode failed", "err", err)
			return
		}
		w.Registry.RemoveByPod(string(pod.UID), pod.Name)
	case watch.Bookmark:
	case watch.Error:
		if w.EmitError != nil {
			w.EmitError(fmt.Errorf("pod watch error event: %v", event.Object))
		}
	}
}

// spawnTasks implements spec.md §4.5.1's spawn_tasks: aggregate init,
// ephemeral, and regular container statuses in that order, and for
// each, either leave an up-to-date task alone, replace a stale one, or
// start a fresh streamer.
func (w *PodWatcher) spawnTasks(ctx context.Context, pod *corev1.Pod) {
	statuses := make([]corev1.ContainerStatus, 0, len(pod.Status.InitContainerStatuses)+len(pod.Status.EphemeralContainerStatuses)+len(pod.Status.ContainerStatuses))
	statuses = append(statuses, pod.Status.InitContainerStatuses...)
	statuses = append(statuses, pod.Status.EphemeralContainerStatuses...)
	statuses = append(statuses, pod.Status.ContainerStatuses...)

	for _, cs := range statuses {
		if w.Query != nil && !w.Query.MatchesContainer(cs.Name) {
			continue
		}

		containerID, ok := AvailableContainerID(toContainerStatus(cs))
		if !ok {
			continue
		}

		id := TaskId{Namespace: w.Namespace, Pod: pod.Name, Container: cs.Name}
		terminated := cs.State.Terminated != nil

		if existing, ok := w.Registry.Get(id); ok && existing.ContainerID == containerID {
			existing.SetContainerTerminated(terminated)
			continue
		}

		life := worker.NewLifecycle(w.Life.Context())
		state := &TaskState{
			Life:          life,
			PodUID:        string(pod.UID),
			PodName:       pod.Name,
			ContainerName: cs.Name,
			ContainerID:   containerID,
		}
		state.SetContainerTerminated(terminated)

		streamer := &ContainerLogStreamer{
			Logger:      w.Logger,
			Client:      w.Client,
			Life:        life,
			Buffer:      w.Buffer,
			Query:       w.Query,
			EmitError:   w.EmitError,
			Namespace:   w.Namespace,
			Pod:         pod.Name,
			Container:   cs.Name,
			ContainerID: containerID,
		}
		go streamer.Run()

		w.Registry.Replace(id, state)
	}
}

func toContainerStatus(cs corev1.ContainerStatus) ContainerStatus {
	out := ContainerStatus{Name: cs.Name, ContainerID: cs.ContainerID}
	if cs.State.Running != nil {
		out.State.Running = true
	}
	if cs.State.Terminated != nil {
		out.State.Terminated = true
		out.State.TerminatedContainerID = cs.State.Terminated.ContainerID
	}
	if cs.LastTerminationState.Terminated != nil {
		out.LastState.Terminated = true
		out.LastState.TerminatedContainerID = cs.LastTerminationState.Terminated.ContainerID
	}
	return out
}

// decodePod recovers a typed corev1.Pod from a watch event object,
// which may already be typed or may be unstructured depending on the
// REST client's negotiated serializer.
func decodePod(obj runtime.Object) (*corev1.Pod, error) {
	if pod, ok := obj.(*corev1.Pod); ok {
		return pod, nil
	}
	if u, ok := obj.(*unstructured.Unstructured); ok {
		var pod corev1.Pod
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &pod); err != nil {
			return nil, err
		}
		return &pod, nil
	}
	return nil, fmt.Errorf("unexpected watch object type %T", obj)
}

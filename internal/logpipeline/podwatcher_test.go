package logpipeline

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/kubetui/kubetui/internal/kubeclient/fake"
	"github.com/kubetui/kubetui/internal/worker"
)

func runningPod(uid, name, container, containerID string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{UID: types.UID(uid), Name: name},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{
					Name:        container,
					ContainerID: containerID,
					State:       corev1.ContainerState{Running: &corev1.ContainerStateRunning{}},
				},
			},
		},
	}
}

func TestPodWatcher_SpawnsAndAbortsTasks(t *testing.T) {
	client := fake.New()
	fw := watch.NewFake()
	client.Watchers["api/v1/namespaces/ns/pods"] = func() (watch.Interface, error) { return fw, nil }

	registry := NewRegistry()
	life := worker.NewLifecycle(context.Background())
	w := &PodWatcher{
		Logger:    log.NewNopLogger(),
		Client:    client,
		Life:      life,
		Namespace: "ns",
		Buffer:    NewLogBuffer(),
		Registry:  registry,
	}
	go w.Run()

	pod := runningPod("uid-1", "p1", "app", "cid-1")
	fw.Add(pod)

	require.Eventually(t, func() bool { return registry.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	fw.Delete(pod)
	require.Eventually(t, func() bool { return registry.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	life.Terminate()
}

func TestPodWatcher_SameContainerIDDoesNotRestart(t *testing.T) {
	client := fake.New()
	fw := watch.NewFake()
	client.Watchers["api/v1/namespaces/ns/pods"] = func() (watch.Interface, error) { return fw, nil }

	registry := NewRegistry()
	life := worker.NewLifecycle(context.Background())
	w := &PodWatcher{
		Logger:    log.NewNopLogger(),
		Client:    client,
		Life:      life,
		Namespace: "ns",
		Buffer:    NewLogBuffer(),
		Registry:  registry,
	}
	go w.Run()

	pod := runningPod("uid-1", "p1", "app", "cid-1")
	fw.Modify(pod)
	require.Eventually(t, func() bool { return registry.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	first, _ := registry.Get(TaskId{Namespace: "ns", Pod: "p1", Container: "app"})

	fw.Modify(pod)
	time.Sleep(20 * time.Millisecond)

	second, _ := registry.Get(TaskId{Namespace: "ns", Pod: "p1", Container: "app"})
	require.Same(t, first, second)
	require.False(t, first.Life.IsTerminated())

	life.Terminate()
}

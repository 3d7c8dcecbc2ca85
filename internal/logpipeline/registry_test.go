package logpipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kubetui/kubetui/internal/worker"
)

func newTestState() *TaskState {
	return &TaskState{Life: worker.NewLifecycle(context.Background())}
}

func TestRegistry_ReplaceAbortsOldTask(t *testing.T) {
	r := NewRegistry()
	id := TaskId{Namespace: "ns", Pod: "p", Container: "c"}

	first := newTestState()
	r.Replace(id, first)
	require.Equal(t, 1, r.Len())
	require.False(t, first.Life.IsTerminated())

	second := newTestState()
	r.Replace(id, second)
	require.Equal(t, 1, r.Len())
	require.True(t, first.Life.IsTerminated())
	require.False(t, second.Life.IsTerminated())

	got, ok := r.Get(id)
	require.True(t, ok)
	require.Same(t, second, got)
}

func TestRegistry_RemoveByPodUID(t *testing.T) {
	r := NewRegistry()
	id1 := TaskId{Namespace: "ns", Pod: "p", Container: "c1"}
	id2 := TaskId{Namespace: "ns", Pod: "p", Container: "c2"}
	s1 := newTestState()
	s1.PodUID = "uid-1"
	s2 := newTestState()
	s2.PodUID = "uid-1"
	r.Replace(id1, s1)
	r.Replace(id2, s2)

	r.RemoveByPod("uid-1", "p")
	require.Equal(t, 0, r.Len())
	require.True(t, s1.Life.IsTerminated())
	require.True(t, s2.Life.IsTerminated())
}

func TestRegistry_RemoveByPodNameWhenUIDMissing(t *testing.T) {
	r := NewRegistry()
	id := TaskId{Namespace: "ns", Pod: "p", Container: "c"}
	s := newTestState()
	s.PodName = "p"
	r.Replace(id, s)

	r.RemoveByPod("", "p")
	require.Equal(t, 0, r.Len())
	require.True(t, s.Life.IsTerminated())
}

func TestRegistry_RemoveNoOpWhenAbsent(t *testing.T) {
	r := NewRegistry()
	r.Remove(TaskId{Namespace: "ns", Pod: "p", Container: "c"})
	require.Equal(t, 0, r.Len())
}

package logpipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogBuffer_DrainPreservesOrderAndEmpties(t *testing.T) {
	b := NewLogBuffer()
	key := StreamKey{Namespace: "ns", Pod: "p", Container: "c", ContainerID: "abc"}
	b.Append(key, "line1")
	b.Append(key, "line2")

	lines := b.Drain()
	require.Len(t, lines, 2)
	require.Equal(t, "line1", lines[0].Text)
	require.Equal(t, "line2", lines[1].Text)
	require.Equal(t, "ns", lines[0].Namespace)
	require.Equal(t, "p", lines[0].Pod)
	require.Equal(t, "c", lines[0].Container)

	require.Nil(t, b.Drain())
}

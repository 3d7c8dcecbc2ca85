package logpipeline

import "testing"

func TestAvailableContainerID(t *testing.T) {
	cases := []struct {
		name   string
		status ContainerStatus
		want   string
		wantOK bool
	}{
		{
			name:   "running",
			status: ContainerStatus{ContainerID: "abc", State: ContainerState{Running: true}},
			want:   "abc",
			wantOK: true,
		},
		{
			name:   "terminated with id",
			status: ContainerStatus{State: ContainerState{Terminated: true, TerminatedContainerID: "def"}},
			want:   "def",
			wantOK: true,
		},
		{
			name: "terminated without id falls back to last state",
			status: ContainerStatus{
				State:     ContainerState{Terminated: true},
				LastState: ContainerState{Terminated: true, TerminatedContainerID: "prev"},
			},
			want:   "prev",
			wantOK: true,
		},
		{
			name:   "terminated without id and no last state",
			status: ContainerStatus{State: ContainerState{Terminated: true}},
			want:   "",
			wantOK: false,
		},
		{
			name: "waiting falls back to last terminated",
			status: ContainerStatus{
				LastState: ContainerState{Terminated: true, TerminatedContainerID: "prev"},
			},
			want:   "prev",
			wantOK: true,
		},
		{
			name:   "waiting with nothing readable",
			status: ContainerStatus{},
			want:   "",
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := AvailableContainerID(tc.status)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("AvailableContainerID(%+v) = (%q, %v), want (%q, %v)", tc.status, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

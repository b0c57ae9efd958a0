package hubclient

import "testing"

func TestTransitionAllowedEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to State
	}{
		{Disconnected, Connecting},
		{Connecting, Authenticating},
		{Authenticating, Subscribing},
		{Subscribing, Running},
		{Running, Backoff},
		{Backoff, Connecting},
	}
	for _, tt := range tests {
		if err := transition(tt.from, tt.to); err != nil {
			t.Errorf("transition(%s, %s) = %v, want nil", tt.from, tt.to, err)
		}
	}
}

func TestTransitionRejectsSkippedSteps(t *testing.T) {
	t.Parallel()

	if err := transition(Disconnected, Running); err == nil {
		t.Error("transition(Disconnected, Running) = nil, want error")
	}
	if err := transition(Running, Subscribing); err == nil {
		t.Error("transition(Running, Subscribing) = nil, want error")
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if Running.String() != "running" {
		t.Errorf("Running.String() = %q, want running", Running.String())
	}
	if State(99).String() != "unknown" {
		t.Errorf("State(99).String() = %q, want unknown", State(99).String())
	}
}

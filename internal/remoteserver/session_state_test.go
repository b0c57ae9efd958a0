package remoteserver

import "testing"

func TestSessionTransitionAllowedEdges(t *testing.T) {
	t.Parallel()

	tests := []struct{ from, to SessionState }{
		{Connected, SetupRequired},
		{Connected, Ready},
		{SetupRequired, SetupInProgress},
		{SetupInProgress, Ready},
		{Ready, SetupRequired},
		{Ready, Closing},
	}
	for _, tt := range tests {
		if err := sessionTransition(tt.from, tt.to); err != nil {
			t.Errorf("sessionTransition(%s, %s) = %v, want nil", tt.from, tt.to, err)
		}
	}
}

func TestSessionTransitionRejectsFromClosing(t *testing.T) {
	t.Parallel()

	if err := sessionTransition(Closing, Ready); err == nil {
		t.Error("sessionTransition(Closing, Ready) = nil, want error")
	}
}

func TestSessionStateString(t *testing.T) {
	t.Parallel()

	if Ready.String() != "ready" {
		t.Errorf("Ready.String() = %q, want ready", Ready.String())
	}
	if SessionState(99).String() != "unknown" {
		t.Errorf("SessionState(99).String() = %q, want unknown", SessionState(99).String())
	}
}

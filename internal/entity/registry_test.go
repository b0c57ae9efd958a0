package entity

import (
	"errors"
	"testing"
)

func TestRegistryHubStateToRemote(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	tests := []struct {
		domain   Domain
		hubState string
		want     string
		wantOK   bool
	}{
		{Light, "on", "ON", true},
		{Light, "off", "OFF", true},
		{Light, "unavailable", RemoteUnavailable, true},
		{Light, "flickering", RemoteUnavailable, false},
		{Switch, "on", "ON", true},
		{Cover, "open", "OPEN", true},
		{Cover, "closing", "CLOSING", true},
		{MediaPlayer, "playing", "PLAYING", true},
		{Climate, "heat_cool", "HEAT_COOL", true},
		{BinarySensor, "on", "ON", true},
	}
	for _, tt := range tests {
		got, ok := r.HubStateToRemote(tt.domain, tt.hubState)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("HubStateToRemote(%s, %q) = (%q, %v), want (%q, %v)", tt.domain, tt.hubState, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRegistryUnknownDomain(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if _, err := r.Table(Domain("vacuum")); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("Table(vacuum) error = %v, want ErrUnknownDomain", err)
	}
}

func TestLightCommandOnWithBrightness(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	service, data, err := r.Command("light.kitchen", Light, CmdOn, map[string]any{"brightness": 50})
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if service != "light.turn_on" {
		t.Errorf("service = %q, want light.turn_on", service)
	}
	if data["entity_id"] != "light.kitchen" {
		t.Errorf("entity_id = %v, want light.kitchen", data["entity_id"])
	}
	if data["brightness_pct"] != 50 {
		t.Errorf("brightness_pct = %v, want 50", data["brightness_pct"])
	}
}

func TestLightCommandOff(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	service, data, err := r.Command("light.kitchen", Light, CmdOff, nil)
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if service != "light.turn_off" {
		t.Errorf("service = %q, want light.turn_off", service)
	}
	if data["entity_id"] != "light.kitchen" {
		t.Errorf("entity_id = %v, want light.kitchen", data["entity_id"])
	}
}

func TestLightCommandInvalidBrightness(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	if _, _, err := r.Command("light.kitchen", Light, CmdOn, map[string]any{"brightness": 200}); !errors.Is(err, ErrBadParameter) {
		t.Errorf("Command() error = %v, want ErrBadParameter", err)
	}
}

func TestSensorCommandNotSupported(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	if _, _, err := r.Command("sensor.cpu", Sensor, CmdOn, nil); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Command() error = %v, want ErrNotSupported", err)
	}
}

func TestCoverSetPosition(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	service, data, err := r.Command("cover.blinds", Cover, CmdPosition, map[string]any{"position": 42})
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if service != "cover.set_cover_position" || data["position"] != 42 {
		t.Errorf("got (%q, %v), want (cover.set_cover_position, 42)", service, data["position"])
	}
}

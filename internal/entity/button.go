package entity

import "fmt"

// buttonTable translates the button domain: a momentary trigger with no persistent state of its own.
type buttonTable struct{}

func (buttonTable) Domain() Domain { return Button }

func (buttonTable) AllowedStates() []string { return []string{"AVAILABLE", RemoteUnavailable} }

func (buttonTable) SupportedFeatures() []Feature { return nil }

func (buttonTable) HubStateToRemote(hubState string) (string, bool) {
	switch hubState {
	case "unavailable":
		return RemoteUnavailable, true
	default:
		// Buttons report a last-pressed timestamp as their hub state; any other value means the entity is present.
		return "AVAILABLE", true
	}
}

func (buttonTable) Command(id ID, cmd RemoteCommand, _ map[string]any) (string, map[string]any, error) {
	switch cmd {
	case CmdPush:
		return "button.press", withEntityID(id), nil
	default:
		return "", nil, fmt.Errorf("%w: button does not support %s", ErrNotSupported, cmd)
	}
}

package entity

import "fmt"

// coverTable translates the cover domain (blinds, garage doors, ...). Position is a direct 0-100 passthrough, no
// rescaling.
type coverTable struct{}

func (coverTable) Domain() Domain { return Cover }

func (coverTable) AllowedStates() []string {
	return []string{"OPEN", "CLOSED", "OPENING", "CLOSING", RemoteUnavailable}
}

func (coverTable) SupportedFeatures() []Feature { return []Feature{"OPEN", "CLOSE", "STOP", "POSITION"} }

func (coverTable) HubStateToRemote(hubState string) (string, bool) {
	switch hubState {
	case "open":
		return "OPEN", true
	case "closed":
		return "CLOSED", true
	case "opening":
		return "OPENING", true
	case "closing":
		return "CLOSING", true
	case "unavailable":
		return RemoteUnavailable, true
	default:
		return RemoteUnavailable, false
	}
}

func (coverTable) Command(id ID, cmd RemoteCommand, params map[string]any) (string, map[string]any, error) {
	switch cmd {
	case CmdOpen:
		return "cover.open_cover", withEntityID(id), nil
	case CmdClose:
		return "cover.close_cover", withEntityID(id), nil
	case CmdStop:
		return "cover.stop_cover", withEntityID(id), nil
	case CmdPosition:
		raw, ok := params["position"]
		if !ok {
			return "", nil, fmt.Errorf("%w: position requires a \"position\" parameter", ErrBadParameter)
		}
		pos, ok := asInt(raw)
		if !ok || pos < 0 || pos > 100 {
			return "", nil, fmt.Errorf("%w: position must be 0-100", ErrBadParameter)
		}
		data := withEntityID(id)
		data["position"] = pos
		return "cover.set_cover_position", data, nil
	default:
		return "", nil, fmt.Errorf("%w: cover does not support %s", ErrNotSupported, cmd)
	}
}

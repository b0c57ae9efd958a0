package entity

import "fmt"

// lightTable translates the light domain: ON/OFF/TOGGLE plus brightness/hue/saturation/color_temperature parameters,
// matching the remote's documented light feature set.
type lightTable struct{}

func (lightTable) Domain() Domain { return Light }

func (lightTable) AllowedStates() []string { return []string{"ON", "OFF", RemoteUnavailable} }

func (lightTable) SupportedFeatures() []Feature { return []Feature{"DIM", "COLOR", "COLOR_TEMPERATURE"} }

func (lightTable) HubStateToRemote(hubState string) (string, bool) {
	switch hubState {
	case "on":
		return "ON", true
	case "off":
		return "OFF", true
	case "unavailable":
		return RemoteUnavailable, true
	default:
		return RemoteUnavailable, false
	}
}

func (lightTable) Command(id ID, cmd RemoteCommand, params map[string]any) (string, map[string]any, error) {
	switch cmd {
	case CmdOn:
		data := withEntityID(id)
		if raw, ok := params["brightness"]; ok {
			pct, ok := asInt(raw)
			if !ok || pct < 0 || pct > 100 {
				return "", nil, fmt.Errorf("%w: brightness must be 0-100", ErrBadParameter)
			}
			data["brightness_pct"] = pct
		}
		if raw, ok := params["hue"]; ok {
			data["hue"] = raw
		}
		if raw, ok := params["saturation"]; ok {
			data["saturation"] = raw
		}
		if raw, ok := params["color_temperature"]; ok {
			data["color_temp_kelvin"] = raw
		}
		return "light.turn_on", data, nil
	case CmdOff:
		return "light.turn_off", withEntityID(id), nil
	case CmdToggle:
		return "light.toggle", withEntityID(id), nil
	default:
		return "", nil, fmt.Errorf("%w: light does not support %s", ErrNotSupported, cmd)
	}
}

// asInt extracts an int from a decoded parameter given as int, int64 or float64 (the type encoding/json produces for
// numbers); any other type, json.Number included, is reported as not an int.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

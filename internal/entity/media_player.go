package entity

import "fmt"

// mediaPlayerTable translates the media_player domain. Volume is a 0.0-1.0 float passthrough (the hub's own native
// scale); source is a string passthrough.
type mediaPlayerTable struct{}

func (mediaPlayerTable) Domain() Domain { return MediaPlayer }

func (mediaPlayerTable) AllowedStates() []string {
	return []string{"ON", "OFF", "PLAYING", "PAUSED", "IDLE", RemoteUnavailable}
}

func (mediaPlayerTable) SupportedFeatures() []Feature {
	return []Feature{"ON_OFF", "VOLUME", "MUTE", "PLAY_PAUSE", "STOP", "NEXT", "PREVIOUS", "SELECT_SOURCE"}
}

func (mediaPlayerTable) HubStateToRemote(hubState string) (string, bool) {
	switch hubState {
	case "on":
		return "ON", true
	case "off", "standby":
		return "OFF", true
	case "playing":
		return "PLAYING", true
	case "paused":
		return "PAUSED", true
	case "idle":
		return "IDLE", true
	case "unavailable":
		return RemoteUnavailable, true
	default:
		return RemoteUnavailable, false
	}
}

func (mediaPlayerTable) Command(id ID, cmd RemoteCommand, params map[string]any) (string, map[string]any, error) {
	switch cmd {
	case CmdOn:
		return "media_player.turn_on", withEntityID(id), nil
	case CmdOff:
		return "media_player.turn_off", withEntityID(id), nil
	case CmdToggle:
		return "media_player.toggle", withEntityID(id), nil
	case CmdPlayPause:
		return "media_player.media_play_pause", withEntityID(id), nil
	case CmdStop:
		return "media_player.media_stop", withEntityID(id), nil
	case CmdPrevious:
		return "media_player.media_previous_track", withEntityID(id), nil
	case CmdNext:
		return "media_player.media_next_track", withEntityID(id), nil
	case CmdVolumeUp:
		return "media_player.volume_up", withEntityID(id), nil
	case CmdVolumeDown:
		return "media_player.volume_down", withEntityID(id), nil
	case CmdMuteToggle:
		data := withEntityID(id)
		muted, _ := params["muted"].(bool)
		data["is_volume_muted"] = muted
		return "media_player.volume_mute", data, nil
	case CmdVolumeSet:
		raw, ok := params["volume"]
		if !ok {
			return "", nil, fmt.Errorf("%w: volume_set requires a \"volume\" parameter", ErrBadParameter)
		}
		vol, ok := asFloat(raw)
		if !ok || vol < 0 || vol > 1 {
			return "", nil, fmt.Errorf("%w: volume must be 0.0-1.0", ErrBadParameter)
		}
		data := withEntityID(id)
		data["volume_level"] = vol
		return "media_player.volume_set", data, nil
	case CmdSourceSelect:
		src, ok := params["source"].(string)
		if !ok || src == "" {
			return "", nil, fmt.Errorf("%w: source_select requires a \"source\" parameter", ErrBadParameter)
		}
		data := withEntityID(id)
		data["source"] = src
		return "media_player.select_source", data, nil
	default:
		return "", nil, fmt.Errorf("%w: media_player does not support %s", ErrNotSupported, cmd)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

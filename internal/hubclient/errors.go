package hubclient

import "errors"

// Sentinel errors surfaced by the hub client to its caller (the controller).
var (
	ErrAuthFailed       = errors.New("hub rejected authentication token")
	ErrNotConnected     = errors.New("hub client is not in the running state")
	ErrHeartbeatTimeout = errors.New("hub did not answer ping before the pong deadline")
	ErrDisconnected     = errors.New("hub connection closed while request was pending")
	ErrTimeout          = errors.New("hub request timed out")
)

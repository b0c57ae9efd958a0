package controller

import "errors"

// Sentinel errors surfaced to remote sessions as entity_command/result failures.
var (
	ErrHubNotConnected = errors.New("hub is not connected")
	ErrEntityUnknown   = errors.New("entity unknown")
)

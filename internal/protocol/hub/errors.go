package hub

import "errors"

// Sentinel codec errors for the hub wire protocol.
var (
	ErrMalformedFrame = errors.New("malformed hub frame")
	ErrUnknownMessage = errors.New("unknown hub message type")
	ErrSchemaMismatch = errors.New("hub message missing a required field")
)

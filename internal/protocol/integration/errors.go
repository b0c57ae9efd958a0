package integration

import "errors"

// Sentinel codec errors for the integration wire protocol.
var (
	ErrMalformedFrame = errors.New("malformed integration frame")
	ErrUnknownMessage = errors.New("unknown integration message name")
	ErrSchemaMismatch = errors.New("integration message missing a required field")
)

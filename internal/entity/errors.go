package entity

import "errors"

// Sentinel errors for the entity package's translation and command-routing paths.
var (
	ErrNotSupported  = errors.New("command not supported for this entity domain")
	ErrEntityUnknown = errors.New("entity unknown")
	ErrBadParameter  = errors.New("bad command parameter")
	ErrUnknownDomain = errors.New("unknown entity domain")
)

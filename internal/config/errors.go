package config

import "errors"

// ErrConfigInvalid wraps YAML decode failures, including unknown root keys rejected by KnownFields.
var ErrConfigInvalid = errors.New("invalid configuration file")

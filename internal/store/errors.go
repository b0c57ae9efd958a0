package store

import "errors"

// ErrNoCredentials is returned by Load when driver.json does not exist yet, i.e. the bridge has never completed
// interactive setup.
var ErrNoCredentials = errors.New("no persisted hub credentials")

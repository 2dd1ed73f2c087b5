package repository

import "errors"

// ErrStoreUnavailable marks failures of the store itself (connection lost,
// transaction cannot start) as opposed to failures of a single statement.
var ErrStoreUnavailable = errors.New("store unavailable")

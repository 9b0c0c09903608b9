package session

import "errors"

// Session errors
var (
	ErrInvalidConfig    = errors.New("invalid session config")
	ErrSnapshotWritten  = errors.New("snapshot already written")
	ErrSnapshotDisabled = errors.New("no snapshot path configured")
)

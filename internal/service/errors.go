package service

import "errors"

// ErrSnapshotMissing is returned when a no-capacity pause has no stored context to resume
var ErrSnapshotMissing = errors.New("paused execution has no snapshot")

func IsSnapshotMissingError(err error) bool {
	return errors.Is(err, ErrSnapshotMissing)
}

package repository

import "errors"

// ErrNotFound indicates that the requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrAlreadyPaused indicates a pause record already exists for (execution, branch).
// Pause creation is create-if-absent; callers treat this as "take the re-snapshot path".
var ErrAlreadyPaused = errors.New("execution already paused")

// IsNotFoundError checks if an error indicates a missing record
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyPausedError checks if an error indicates a pause record already exists
func IsAlreadyPausedError(err error) bool {
	return errors.Is(err, ErrAlreadyPaused)
}

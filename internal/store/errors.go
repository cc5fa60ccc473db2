package store

import "errors"

var (
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict means a guarded update matched zero rows because a
	// concurrent writer already bumped the version. Callers must re-read and
	// resubmit; the store never retries on its own.
	ErrVersionConflict = errors.New("version conflict")
)

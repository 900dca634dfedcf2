// Package lockfile provides a cross-platform advisory file lock used by the
// filesystem storage adapter to detect a second process opening the same
// data directory (spec.md §4.3).
package lockfile

import (
	"errors"
)

// ErrLocked is returned when the open-lock is held by another process.
var ErrLocked = errStoreLocked

// ErrLockBusy is returned when a non-blocking shared/exclusive lock cannot
// be acquired because another process holds a conflicting lock.
var ErrLockBusy = errors.New("lock busy: held by another process")

// IsLocked reports whether err indicates the store is already open in
// another process.
func IsLocked(err error) bool {
	return errors.Is(err, errStoreLocked)
}

package store

import (
	"errors"
	"io/fs"
	"syscall"
)

// IsPermissionDenied reports whether err stems from a filesystem permission
// failure. This is the trigger condition for falling back to the queue:
// a writer that cannot reach the storage directory still has to record its
// update somewhere.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, fs.ErrPermission) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EACCES || errno == syscall.EPERM || errno == syscall.EROFS
	}

	return false
}

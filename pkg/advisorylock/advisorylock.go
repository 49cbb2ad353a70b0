// Package advisorylock wraps non-blocking flock(2) locking of an open file
// descriptor, used by DOWNLOAD (shared) and DELETE (exclusive) to coexist
// safely with any other process touching the storage directory.
package advisorylock

import (
	"errors"
	"syscall"
)

// ErrWouldBlock is returned when the lock is already held by someone else.
var ErrWouldBlock = errors.New("lock would block")

// TryShared attempts a non-blocking shared (read) lock on fd.
func TryShared(fd uintptr) error {
	return tryFlock(fd, syscall.LOCK_SH|syscall.LOCK_NB)
}

// TryExclusive attempts a non-blocking exclusive (write) lock on fd.
func TryExclusive(fd uintptr) error {
	return tryFlock(fd, syscall.LOCK_EX|syscall.LOCK_NB)
}

// Unlock releases any lock held on fd.
func Unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}

func tryFlock(fd uintptr, how int) error {
	if err := syscall.Flock(int(fd), how); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrWouldBlock
		}
		return err
	}
	return nil
}

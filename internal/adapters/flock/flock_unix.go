//go:build unix

package flock

import (
	"os"
	"syscall"
)

// tryLock attempts a non-blocking exclusive flock(2). The lock is advisory,
// process-scoped, and released on close or process exit.
func tryLock(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		if err == syscall.EWOULDBLOCK {
			return ErrNotAcquired
		}
		return err
	}

	return nil
}

func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

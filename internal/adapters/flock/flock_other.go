//go:build !unix

package flock

import (
	"errors"
	"os"
	"sync"
)

// Platforms without flock(2) fall back to an in-process registry plus an
// exclusive-create sentinel next to the lock file. This keeps single-host
// semantics working even if staleness handling is cruder than flock's
// release-on-exit behaviour.

var (
	sentinelMu   sync.Mutex
	sentinelHeld = map[string]bool{}
)

func tryLock(f *os.File) error {
	sentinel := f.Name() + ".held"

	sentinelMu.Lock()
	defer sentinelMu.Unlock()

	if sentinelHeld[sentinel] {
		return ErrNotAcquired
	}

	handle, err := os.OpenFile(sentinel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrNotAcquired
		}
		return err
	}
	_ = handle.Close()

	sentinelHeld[sentinel] = true
	return nil
}

func unlock(f *os.File) error {
	sentinel := f.Name() + ".held"

	sentinelMu.Lock()
	defer sentinelMu.Unlock()

	delete(sentinelHeld, sentinel)
	return os.Remove(sentinel)
}

package ports

import "context"

// Locker serializes a critical section across processes. Acquire returns a
// release function on success.
type Locker interface {
	Acquire(ctx context.Context) (func() error, error)
}

package flock

import (
	"context"
	"log/slog"

	"github.com/nexus-agents/nexus/internal/ports"
)

// Guard binds a Lock to fixed acquisition options so callers can treat it as
// a ports.Locker.
type Guard struct {
	lock *Lock
	opts Options
}

var _ ports.Locker = (*Guard)(nil)

func NewGuard(path string, opts Options, logger *slog.Logger) *Guard {
	return &Guard{lock: New(path, logger), opts: opts}
}

func (g *Guard) Acquire(ctx context.Context) (func() error, error) {
	return g.lock.Acquire(ctx, g.opts)
}

// Package flock provides bounded acquisition of advisory file locks for
// serializing writers across independent processes.
package flock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

var ErrNotAcquired = errors.New("file lock not acquired")

const pollInterval = 50 * time.Millisecond

// Options bound how long Acquire will wait. Each attempt polls the lock for
// AttemptTimeout; failed attempts back off linearly (Backoff, 2*Backoff, ...).
type Options struct {
	AttemptTimeout time.Duration
	Attempts       int
	Backoff        time.Duration
}

func DefaultOptions() Options {
	return Options{
		AttemptTimeout: 2 * time.Second,
		Attempts:       3,
		Backoff:        time.Second,
	}
}

// Lock is an exclusive advisory lock on a filesystem path. The lock file is
// created on first use and never removed on unix; holding it conveys nothing
// beyond the advisory claim.
type Lock struct {
	path   string
	logger *slog.Logger
}

func New(path string, logger *slog.Logger) *Lock {
	if logger == nil {
		logger = slog.Default()
	}

	return &Lock{path: path, logger: logger}
}

// Acquire obtains the lock within the retry budget, returning a release
// function. It returns ErrNotAcquired once every attempt has timed out.
func (l *Lock) Acquire(ctx context.Context, opts Options) (func() error, error) {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultOptions().AttemptTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultOptions().Attempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultOptions().Backoff
	}

	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		release, err := l.acquireOnce(ctx, opts.AttemptTimeout)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}

		if attempt == opts.Attempts {
			break
		}

		backoff := time.Duration(attempt) * opts.Backoff
		l.logger.Warn("lock busy, backing off",
			"path", l.path,
			"attempt", attempt,
			"backoff", backoff.String(),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrNotAcquired, l.path, opts.Attempts)
}

func (l *Lock) acquireOnce(ctx context.Context, timeout time.Duration) (func() error, error) {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := tryLock(file)
		if err == nil {
			return func() error {
				unlockErr := unlock(file)
				closeErr := file.Close()
				if unlockErr != nil {
					return unlockErr
				}
				return closeErr
			}, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			_ = file.Close()
			return nil, err
		}

		if time.Now().After(deadline) {
			_ = file.Close()
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			_ = file.Close()
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

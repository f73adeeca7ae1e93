// Package watch notifies a handler when the event log changes, batching
// rapid write bursts behind a debounce window so one flurry of appends
// triggers a single snapshot regeneration.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Handler is invoked after the debounce window closes on a batch of changes.
type Handler func(ctx context.Context)

type Watcher struct {
	path     string
	debounce time.Duration
	handler  Handler
	logger   *slog.Logger
}

// New watches a single file path. The parent directory is registered with
// fsnotify so creation of a missing log is observed too.
func New(path string, debounce time.Duration, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch handler must not be nil")
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}

	return &Watcher{
		path:     absPath,
		debounce: debounce,
		handler:  handler,
		logger:   logger,
	}, nil
}

// Run blocks until the context is cancelled, invoking the handler once per
// debounced batch of changes to the watched file.
func (w *Watcher) Run(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = notifier.Close() }()

	if err := notifier.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("watching for log changes", "path", w.path, "debounce", w.debounce.String())

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.handler(ctx)

		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

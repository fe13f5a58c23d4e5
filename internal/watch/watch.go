// Package watch re-runs a callback when a file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/a3drift/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Watcher observes one file.
//
// The parent directory is watched rather than the file itself so the watch
// survives editors and tools that replace the file. Only events naming the
// file are acted on.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *logging.Logger
}

// New creates a watcher for path. The file does not need to exist yet, but
// its directory does.
func New(path string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, watcher: w, logger: logger}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run calls fn once per write or create event on the file until ctx is done.
// Calls are made on the Run goroutine, one at a time. Run closes the watcher
// before returning and returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, fn func()) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug(ctx, "file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			fn()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "file watcher error", zap.Error(err))
		}
	}
}

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

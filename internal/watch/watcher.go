// Package watch reruns a callback whenever a file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"scorenet/internal/logging"
)

// DefaultDebounce batches the burst of events a single save produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file. The parent directory is watched so that editors
// replacing the file by a rename are seen too.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	log      *zap.Logger
}

// New creates a watcher for path. Run must be called to start watching.
func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		watcher:  w,
		log:      logging.Get(logging.CategoryCLI).With(zap.String("file", abs)),
	}, nil
}

// Run calls onChange once per debounced change of the file until ctx is
// done, then closes the watcher. Errors from onChange are logged and do not
// stop the loop.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	defer w.watcher.Close()

	tick := time.NewTicker(w.debounce / 4)
	defer tick.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.log.Debug("file event", zap.Stringer("op", event.Op))
			pending = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-tick.C:
			if pending.IsZero() || time.Since(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			if err := onChange(ctx); err != nil {
				w.log.Warn("change handler failed", zap.Error(err))
			}
		}
	}
}

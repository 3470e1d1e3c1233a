package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"tracksync/internal/logging"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher observes the sync folder for changes to the catalog file. Sync
// clients usually replace files atomically, so the parent directory is
// watched rather than the file itself.
type Watcher struct {
	watcher  *fsnotify.Watcher
	target   string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher starts watching the directory containing catalogPath.
func NewWatcher(catalogPath string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(catalogPath)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	return &Watcher{
		watcher:  fsw,
		target:   filepath.Clean(catalogPath),
		debounce: debounce,
		logger:   logging.NewComponentLogger(logger, "catalog-watch"),
	}, nil
}

// Run blocks until ctx is cancelled, calling onChange once per burst of
// writes to the catalog file.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("catalog file event", logging.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "catalog watch error", "catalog_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "external catalog changes may be noticed late"),
			)
		}
	}
}

// Close stops the watcher without waiting for Run to return.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"tracksync/internal/logging"
	"tracksync/internal/services"
)

// fileState is the last-known on-disk identity of the catalog file.
type fileState struct {
	modTime time.Time
	size    int64
}

func statFile(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{modTime: info.ModTime(), size: info.Size()}, nil
}

func (c *Catalog) recordSnapshot() {
	state, err := statFile(c.path)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.snapshot = state
	c.mu.Unlock()
}

// CheckExternalChanges reports whether the catalog file's modification time
// or size differs from the value recorded after the last open or local write.
func (c *Catalog) CheckExternalChanges() (bool, error) {
	current, err := statFile(c.path)
	if err != nil {
		return false, services.Wrap(services.ErrStaleExternalState, "catalog", "stat", "catalog file unavailable", err)
	}
	c.mu.RLock()
	known := c.snapshot
	c.mu.RUnlock()
	return !current.modTime.Equal(known.modTime) || current.size != known.size, nil
}

// ErrIfStale returns an ErrStaleExternalState error when the file changed
// externally, leaving the handle untouched.
func (c *Catalog) ErrIfStale() error {
	changed, err := c.CheckExternalChanges()
	if err != nil {
		return err
	}
	if changed {
		return services.Wrap(services.ErrStaleExternalState, "catalog", "check", "catalog file changed on disk since it was opened", nil)
	}
	return nil
}

// ReloadIfChanged closes and reopens the database handle when the file
// changed externally. It reports whether a reload happened.
func (c *Catalog) ReloadIfChanged(ctx context.Context) (bool, error) {
	changed, err := c.CheckExternalChanges()
	if err != nil || !changed {
		return false, err
	}
	if err := c.Reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reload checkpoints and closes the current handle, then opens the file again.
func (c *Catalog) Reload(ctx context.Context) error {
	ctx = ensureContext(ctx)
	c.mu.Lock()
	if c.db != nil {
		if err := c.releaseLocked(); err != nil {
			logging.WarnWithContext(c.logger, "closing stale catalog handle failed", "catalog_close_failed",
				logging.Error(err),
				logging.Path(c.path),
			)
		}
	}
	c.mu.Unlock()

	db, err := c.openDB(ctx)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}
	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	c.recordSnapshot()

	c.logger.Info("catalog reloaded after external change",
		logging.String(logging.FieldEventType, "catalog_reloaded"),
		logging.Path(c.path),
	)
	return nil
}

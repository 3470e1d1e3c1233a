package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"tracksync/internal/services"
)

const lockRetryDelay = 100 * time.Millisecond

// Lock takes the advisory lock that serializes local batch writers (scan,
// organize apply, watch reloads). It waits up to the configured lock timeout
// and returns a release function.
func (c *Catalog) Lock(ctx context.Context) (func(), error) {
	ctx = ensureContext(ctx)
	if err := os.MkdirAll(filepath.Dir(c.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	fileLock := flock.New(c.lockPath)

	waitCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()
	locked, err := fileLock.TryLockContext(waitCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrLockedCatalog, "catalog", "lock",
			fmt.Sprintf("another tracksync process holds %s", c.lockPath), nil)
	}
	return func() {
		_ = fileLock.Unlock()
	}, nil
}

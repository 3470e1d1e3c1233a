package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tracksync/internal/config"
	"tracksync/internal/logging"
	"tracksync/internal/services"
)

const defaultLockTimeout = 5 * time.Second

// Options describes how to open a catalog file.
type Options struct {
	// Path is the catalog database file.
	Path string
	// DeviceID, when set, replaces the persisted device identity. Only
	// library-creation flows should set it.
	DeviceID string
	// DeviceName is recorded alongside device path overrides.
	DeviceName string
	// LockTimeout bounds how long SQLite waits on a file held by a sync client.
	LockTimeout time.Duration
	// LockPath is the advisory lock file guarding local batch writers.
	LockPath string
	Logger   *slog.Logger
}

// FromConfig derives open options from application configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Path:        cfg.CatalogPath(),
		DeviceName:  cfg.Device.Name,
		LockTimeout: cfg.LockTimeout(),
		LockPath:    filepath.Join(cfg.Paths.LogDir, "catalog.lock"),
	}
}

// Catalog is an open handle on the shared catalog file.
type Catalog struct {
	mu          sync.RWMutex
	db          *sql.DB
	path        string
	lockPath    string
	deviceID    string
	deviceName  string
	lockTimeout time.Duration
	logger      *slog.Logger
	snapshot    fileState
}

// Open opens the catalog at opts.Path, creating it when absent, applies
// additive migrations, and resolves the device identity.
func Open(ctx context.Context, opts Options) (*Catalog, error) {
	ctx = ensureContext(ctx)
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", "catalog path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}

	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	lockPath := opts.LockPath
	if lockPath == "" {
		lockPath = path + ".lock"
	}

	c := &Catalog{
		path:        path,
		lockPath:    lockPath,
		deviceName:  strings.TrimSpace(opts.DeviceName),
		lockTimeout: timeout,
		logger:      logging.NewComponentLogger(opts.Logger, "catalog"),
	}

	db, err := c.openDB(ctx)
	if err != nil {
		return nil, err
	}
	c.db = db

	if err := c.resolveDeviceIdentity(ctx, strings.TrimSpace(opts.DeviceID)); err != nil {
		_ = db.Close()
		return nil, classifyBusy(err, "catalog open")
	}
	c.recordSnapshot()

	c.logger.Debug("catalog opened",
		logging.Path(path),
		logging.String(logging.FieldDeviceID, c.deviceID),
	)
	return c, nil
}

func (c *Catalog) openDB(ctx context.Context) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", c.path, c.lockTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if err := retryOnBusy(ctx, func() error {
			_, execErr := db.ExecContext(ctx, pragma)
			return execErr
		}); err != nil {
			_ = db.Close()
			if isSQLiteBusy(err) {
				return nil, classifyBusy(err, "catalog open")
			}
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, classifyBusy(err, "catalog migrate")
	}
	return db, nil
}

func (c *Catalog) resolveDeviceIdentity(ctx context.Context, explicit string) error {
	db := c.db
	now := time.Now().UnixMilli()
	if explicit != "" {
		if _, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)`,
			MetaDeviceID, explicit, now,
		); err != nil {
			return fmt.Errorf("set device id: %w", err)
		}
		c.deviceID = explicit
	} else {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)`,
			MetaDeviceID, uuid.NewString(), now,
		); err != nil {
			return fmt.Errorf("create device id: %w", err)
		}
		var stored sql.NullString
		if err := db.QueryRowContext(ctx, `SELECT value FROM sync_metadata WHERE key = ?`, MetaDeviceID).Scan(&stored); err != nil {
			return fmt.Errorf("read device id: %w", err)
		}
		c.deviceID = stored.String
	}

	if c.deviceName == "" {
		return nil
	}
	query := `INSERT OR IGNORE INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)`
	if explicit != "" {
		query = `INSERT OR REPLACE INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)`
	}
	if _, err := db.ExecContext(ctx, query, MetaDeviceName, c.deviceName, now); err != nil {
		return fmt.Errorf("record device name: %w", err)
	}
	return nil
}

// Close checkpoints the write-ahead log into the primary file and releases the handle.
func (c *Catalog) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	if err := c.releaseLocked(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return nil
}

// releaseLocked checkpoints and closes the handle. Callers hold c.mu.
func (c *Catalog) releaseLocked() error {
	if err := checkpoint(c.db); err != nil {
		logging.WarnWithContext(c.logger, "catalog checkpoint failed", "catalog_checkpoint_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "recent writes may stay in the -wal file until the next open"),
			logging.String(logging.FieldErrorHint, "ensure no other process holds the catalog open"),
		)
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func checkpoint(db *sql.DB) error {
	var busy, logFrames, checkpointed int
	if err := db.QueryRow("PRAGMA wal_checkpoint(FULL)").Scan(&busy, &logFrames, &checkpointed); err != nil {
		return err
	}
	if busy != 0 {
		return errors.New("wal checkpoint blocked by concurrent reader")
	}
	return nil
}

// Path returns the catalog file location.
func (c *Catalog) Path() string {
	return c.path
}

// DeviceID returns the device identity resolved at open time.
func (c *Catalog) DeviceID() string {
	return c.deviceID
}

// DeviceName returns the configured device name.
func (c *Catalog) DeviceName() string {
	return c.deviceName
}

func (c *Catalog) conn() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, errors.New("catalog is closed")
	}
	return c.db, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Stats counts catalog rows.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	db, err := c.conn()
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM tracks`, &stats.Tracks},
		{`SELECT COUNT(*) FROM artists`, &stats.Artists},
		{`SELECT COUNT(*) FROM albums`, &stats.Albums},
		{`SELECT COUNT(*) FROM playlists`, &stats.Playlists},
		{`SELECT COUNT(*) FROM tracks WHERE file_hash IS NOT NULL AND file_hash <> ''`, &stats.HashedTracks},
		{`SELECT COUNT(*) FROM device_paths`, &stats.DevicePaths},
		{`SELECT COUNT(*) FROM operation_log`, &stats.Operations},
	}
	for _, entry := range counts {
		if err := db.QueryRowContext(ctx, entry.query).Scan(entry.dest); err != nil {
			return Stats{}, fmt.Errorf("catalog stats: %w", err)
		}
	}
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(file_size), 0) FROM tracks`).Scan(&stats.TotalBytes); err != nil {
		return Stats{}, fmt.Errorf("catalog size: %w", err)
	}
	return stats, nil
}

// CheckHealth inspects the catalog file and runs an integrity check.
func (c *Catalog) CheckHealth(ctx context.Context) (Health, error) {
	ctx = ensureContext(ctx)
	health := Health{Path: c.path}

	info, err := os.Stat(c.path)
	switch {
	case err == nil:
		health.Exists = true
		health.SizeBytes = info.Size()
	case errors.Is(err, fs.ErrNotExist):
		return health, nil
	default:
		return health, fmt.Errorf("stat catalog: %w", err)
	}

	db, err := c.conn()
	if err != nil {
		return health, err
	}
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&health.JournalMode); err != nil {
		return health, fmt.Errorf("read journal mode: %w", err)
	}
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&health.Integrity); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&health.SchemaVersion); err != nil {
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if stale, err := c.CheckExternalChanges(); err == nil {
		health.Stale = stale
	}
	return health, nil
}

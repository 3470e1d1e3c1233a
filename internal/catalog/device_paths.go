package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracksync/internal/services"
)

// SetDevicePath records a local path override for this device, replacing any
// previous override for the same track.
func (c *Catalog) SetDevicePath(ctx context.Context, trackID, localPath string) error {
	localPath = strings.TrimSpace(localPath)
	if localPath == "" {
		return services.Wrap(services.ErrValidation, "catalog", "set device path", "local path is empty", nil)
	}
	return c.withTx(ctx, "set device path", func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tracks WHERE id = ?`, trackID).Scan(&exists); err != nil {
			return fmt.Errorf("lookup track: %w", err)
		}
		if exists == 0 {
			return services.Wrap(services.ErrNotFound, "catalog", "set device path", "track "+trackID, nil)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM device_paths WHERE device_id = ? AND track_id = ?`, c.deviceID, trackID); err != nil {
			return fmt.Errorf("clear device path: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO device_paths (device_id, device_name, track_id, local_path, last_synced) VALUES (?, ?, ?, ?, ?)`,
			c.deviceID, nullableString(c.deviceName), trackID, localPath, time.Now().UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert device path: %w", err)
		}
		return c.appendOperation(ctx, tx, OpSetDevicePath, trackID, map[string]string{"localPath": localPath})
	})
}

// DevicePath returns the override recorded by deviceID for trackID.
func (c *Catalog) DevicePath(ctx context.Context, deviceID, trackID string) (string, bool, error) {
	db, err := c.conn()
	if err != nil {
		return "", false, err
	}
	var local sql.NullString
	err = db.QueryRowContext(ensureContext(ctx),
		`SELECT local_path FROM device_paths WHERE device_id = ? AND track_id = ? ORDER BY last_synced DESC LIMIT 1`,
		deviceID, trackID,
	).Scan(&local)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get device path: %w", err)
	}
	return local.String, local.Valid && local.String != "", nil
}

// DevicePaths returns every override recorded by deviceID, keyed by track id.
func (c *Catalog) DevicePaths(ctx context.Context, deviceID string) (map[string]string, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ensureContext(ctx),
		`SELECT track_id, local_path FROM device_paths WHERE device_id = ? ORDER BY last_synced`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list device paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]string)
	for rows.Next() {
		var trackID string
		var local sql.NullString
		if err := rows.Scan(&trackID, &local); err != nil {
			return nil, fmt.Errorf("scan device path: %w", err)
		}
		if local.Valid && local.String != "" {
			paths[trackID] = local.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device paths: %w", err)
	}
	return paths, nil
}

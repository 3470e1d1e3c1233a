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

// SetMetadata stores a key/value pair in sync_metadata, replacing any prior value.
func (c *Catalog) SetMetadata(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return services.Wrap(services.ErrValidation, "catalog", "set metadata", "key is empty", nil)
	}
	return c.withTx(ctx, "set metadata", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)`,
			key, value, time.Now().UnixMilli(),
		); err != nil {
			return fmt.Errorf("set metadata %s: %w", key, err)
		}
		return nil
	})
}

// GetMetadata returns the value stored for key and whether it exists.
func (c *Catalog) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	db, err := c.conn()
	if err != nil {
		return "", false, err
	}
	var value sql.NullString
	err = db.QueryRowContext(ensureContext(ctx), `SELECT value FROM sync_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value.String, true, nil
}

// Metadata returns every sync_metadata entry.
func (c *Catalog) Metadata(ctx context.Context) (map[string]string, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ensureContext(ctx), `SELECT key, value FROM sync_metadata ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	defer rows.Close()
	entries := make(map[string]string)
	for rows.Next() {
		var (
			key   string
			value sql.NullString
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		entries[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata: %w", err)
	}
	return entries, nil
}

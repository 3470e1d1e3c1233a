package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"
)

//go:embed schema.sql
var schemaSQL string

//go:embed indexes.sql
var indexSQL string

// schemaVersion is recorded in schema_migrations once a file has every table,
// column, and index below. Bump it when adding to the schema.
const schemaVersion = 2

type columnMigration struct {
	table      string
	column     string
	definition string
}

// additiveColumns lists columns that older catalog files may lack. Columns
// are only ever added; nothing is dropped or renamed.
var additiveColumns = []columnMigration{
	{table: "tracks", column: "album_artist", definition: "TEXT"},
	{table: "tracks", column: "album_id", definition: "INTEGER"},
	{table: "tracks", column: "artist_id", definition: "INTEGER"},
	{table: "tracks", column: "track_no", definition: "INTEGER"},
	{table: "tracks", column: "tempo", definition: "INTEGER"},
	{table: "tracks", column: "length", definition: "INTEGER"},
	{table: "tracks", column: "file_size", definition: "INTEGER"},
	{table: "tracks", column: "bitrate", definition: "INTEGER"},
	{table: "tracks", column: "format", definition: "TEXT"},
	{table: "tracks", column: "last_modified", definition: "INTEGER"},
	{table: "tracks", column: "date_added", definition: "INTEGER"},
	{table: "tracks", column: "is_duplicate", definition: "BOOLEAN DEFAULT 0"},
	{table: "tracks", column: "duplicate_group_id", definition: "TEXT"},
	{table: "tracks", column: "keep_status", definition: "TEXT DEFAULT 'keep'"},
	{table: "device_paths", column: "device_name", definition: "TEXT"},
	{table: "device_paths", column: "last_synced", definition: "INTEGER"},
	{table: "playlists", column: "track_count", definition: "INTEGER"},
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	return retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at INTEGER)"); err != nil {
			return fmt.Errorf("ensure schema_migrations: %w", err)
		}

		var current int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if current >= schemaVersion {
			return tx.Commit()
		}

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		for _, m := range additiveColumns {
			if err := ensureColumn(ctx, tx, m); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
		if err := backfillEntities(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			schemaVersion, time.Now().UnixMilli(),
		); err != nil {
			return fmt.Errorf("record migration %d: %w", schemaVersion, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migrations: %w", err)
		}
		return nil
	})
}

func ensureColumn(ctx context.Context, q queryer, m columnMigration) error {
	columns, err := tableColumns(ctx, q, m.table)
	if err != nil {
		return err
	}
	if _, ok := columns[m.column]; ok {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.definition)
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s.%s: %w", m.table, m.column, err)
	}
	return nil
}

func tableColumns(ctx context.Context, q queryer, table string) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   sql.NullString
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	return columns, nil
}

// backfillEntities links legacy rows that predate the artists/albums tables.
func backfillEntities(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, artist, album_artist, album FROM tracks
        WHERE artist_id IS NULL AND album_id IS NULL
          AND (artist IS NOT NULL OR album_artist IS NOT NULL OR album IS NOT NULL)`)
	if err != nil {
		return fmt.Errorf("select legacy tracks: %w", err)
	}
	type legacyRow struct {
		id, artist, albumArtist, album string
	}
	var pending []legacyRow
	for rows.Next() {
		var (
			id                         string
			artist, albumArtist, album sql.NullString
		)
		if err := rows.Scan(&id, &artist, &albumArtist, &album); err != nil {
			rows.Close()
			return fmt.Errorf("scan legacy track: %w", err)
		}
		pending = append(pending, legacyRow{id: id, artist: artist.String, albumArtist: albumArtist.String, album: album.String})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate legacy tracks: %w", err)
	}
	rows.Close()

	for _, row := range pending {
		artistID, albumID, err := linkEntities(ctx, tx, row.artist, row.albumArtist, row.album)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tracks SET artist_id = ?, album_id = ? WHERE id = ?`,
			nullableInt64(artistID), nullableInt64(albumID), row.id); err != nil {
			return fmt.Errorf("link legacy track %s: %w", row.id, err)
		}
	}
	return nil
}

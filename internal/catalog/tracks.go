package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracksync/internal/services"
)

// GetTrack fetches a track by identifier. A missing track yields nil, nil.
func (c *Catalog) GetTrack(ctx context.Context, id string) (*Track, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	track, err := scanTrack(ensureContextRow(ctx, db, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// GetTrackByPath fetches the track cataloged at the exact path.
func (c *Catalog) GetTrackByPath(ctx context.Context, path string) (*Track, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	track, err := scanTrack(ensureContextRow(ctx, db,
		`SELECT `+trackColumns+` FROM tracks WHERE file_path = ? ORDER BY date_added, id LIMIT 1`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track by path: %w", err)
	}
	return track, nil
}

// GetAllTracks returns every track ordered by artist, album, then title.
func (c *Catalog) GetAllTracks(ctx context.Context) ([]Track, error) {
	return c.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY artist, album, title, file_path, id`)
}

func (c *Catalog) queryTracks(ctx context.Context, query string, args ...any) ([]Track, error) {
	ctx = ensureContext(ctx)
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	var tracks []Track
	err = retryOnBusy(ctx, func() error {
		tracks = tracks[:0]
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			track, err := scanTrack(rows)
			if err != nil {
				return err
			}
			tracks = append(tracks, *track)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classifyBusy(fmt.Errorf("query tracks: %w", err), "catalog read")
	}
	return tracks, nil
}

// InsertOrReplaceTrack stores t keyed by its file path. An existing row for
// the path keeps its id, date_added, and duplicate bookkeeping; every other
// field is replaced. It reports whether a new row was inserted and fills in
// t.ID and t.DateAdded.
func (c *Catalog) InsertOrReplaceTrack(ctx context.Context, t *Track) (bool, error) {
	if t == nil {
		return false, errors.New("track is nil")
	}
	if strings.TrimSpace(t.FilePath) == "" {
		return false, services.Wrap(services.ErrValidation, "catalog", "insert track", "file path is empty", nil)
	}

	var inserted bool
	err := c.withTx(ctx, "insert track", func(tx *sql.Tx) error {
		inserted = false
		var (
			existingID string
			dateAdded  sql.NullFloat64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, date_added FROM tracks WHERE file_path = ? ORDER BY date_added, id LIMIT 1`,
			t.FilePath,
		).Scan(&existingID, &dateAdded)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			inserted = true
		case err != nil:
			return fmt.Errorf("lookup track path: %w", err)
		}

		artistID, albumID, err := linkEntities(ctx, tx, t.Artist, t.AlbumArtist, t.Album)
		if err != nil {
			return err
		}

		if inserted {
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if t.DateAdded == 0 {
				t.DateAdded = time.Now().UnixMilli()
			}
			if t.KeepStatus == "" {
				t.KeepStatus = "keep"
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tracks (`+trackColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID,
				t.FilePath,
				nullableString(t.FileHash),
				nullableString(t.Artist),
				nullableString(t.AlbumArtist),
				nullableString(t.Title),
				nullableString(t.Album),
				nullableInt64(albumID),
				nullableInt64(artistID),
				nullableInt(t.TrackNo),
				nullableInt(t.BPM),
				nullableInt(t.DurationSeconds),
				nullableInt64(t.FileSizeBytes),
				nullableInt(t.BitrateKbps),
				nullableString(t.Format),
				nullableMillis(t.LastModified),
				t.DateAdded,
				boolToInt(t.IsDuplicate),
				nullableString(t.DuplicateGroupID),
				t.KeepStatus,
			); err != nil {
				return fmt.Errorf("insert track: %w", err)
			}
		} else {
			t.ID = existingID
			if dateAdded.Valid {
				t.DateAdded = int64(dateAdded.Float64)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE tracks
                 SET file_hash = ?, artist = ?, album_artist = ?, title = ?, album = ?,
                     album_id = ?, artist_id = ?, track_no = ?, tempo = ?, length = ?,
                     file_size = ?, bitrate = ?, format = ?, last_modified = ?
                 WHERE id = ?`,
				nullableString(t.FileHash),
				nullableString(t.Artist),
				nullableString(t.AlbumArtist),
				nullableString(t.Title),
				nullableString(t.Album),
				nullableInt64(albumID),
				nullableInt64(artistID),
				nullableInt(t.TrackNo),
				nullableInt(t.BPM),
				nullableInt(t.DurationSeconds),
				nullableInt64(t.FileSizeBytes),
				nullableInt(t.BitrateKbps),
				nullableString(t.Format),
				nullableMillis(t.LastModified),
				existingID,
			); err != nil {
				return fmt.Errorf("replace track: %w", err)
			}
		}
		t.AlbumID = albumID
		t.ArtistID = artistID

		opType := OpUpdate
		if inserted {
			opType = OpInsert
		}
		if err := c.appendOperation(ctx, tx, opType, t.ID, map[string]any{
			"filePath": t.FilePath,
			"fileHash": t.FileHash,
		}); err != nil {
			return err
		}
		if inserted {
			return nil
		}
		return pruneOrphans(ctx, tx)
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// UpdateTrack applies a partial edit to the track with the given id.
// Artist and album links are refreshed and orphans pruned when text changes.
func (c *Catalog) UpdateTrack(ctx context.Context, id string, update TrackUpdate) error {
	if update.Empty() {
		return nil
	}
	return c.withTx(ctx, "update track", func(tx *sql.Tx) error {
		current, err := scanTrack(tx.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "catalog", "update track", "track "+id, nil)
		}
		if err != nil {
			return fmt.Errorf("load track: %w", err)
		}

		fields := make([]string, 0, 8)
		values := make([]any, 0, 9)
		setString := func(column string, value *string, target *string) {
			if value == nil {
				return
			}
			*target = strings.TrimSpace(*value)
			fields = append(fields, column+" = ?")
			values = append(values, nullableString(*target))
		}
		setString("title", update.Title, &current.Title)
		setString("artist", update.Artist, &current.Artist)
		setString("album_artist", update.AlbumArtist, &current.AlbumArtist)
		setString("album", update.Album, &current.Album)

		switch {
		case update.ClearTrackNo:
			fields = append(fields, "track_no = ?")
			values = append(values, nil)
		case update.TrackNo != nil:
			fields = append(fields, "track_no = ?")
			values = append(values, nullableInt(update.TrackNo))
		}
		switch {
		case update.ClearBPM:
			fields = append(fields, "tempo = ?")
			values = append(values, nil)
		case update.BPM != nil:
			fields = append(fields, "tempo = ?")
			values = append(values, nullableInt(update.BPM))
		}

		if update.touchesEntities() {
			artistID, albumID, err := linkEntities(ctx, tx, current.Artist, current.AlbumArtist, current.Album)
			if err != nil {
				return err
			}
			fields = append(fields, "artist_id = ?", "album_id = ?")
			values = append(values, nullableInt64(artistID), nullableInt64(albumID))
		}

		values = append(values, id)
		query := `UPDATE tracks SET ` + strings.Join(fields, ", ") + ` WHERE id = ?`
		if _, err := tx.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("update track: %w", err)
		}
		if err := c.appendOperation(ctx, tx, OpUpdate, id, update); err != nil {
			return err
		}
		if update.touchesEntities() {
			return pruneOrphans(ctx, tx)
		}
		return nil
	})
}

// UpdateTrackPath records a new file path for the track.
func (c *Catalog) UpdateTrackPath(ctx context.Context, id, newPath string) error {
	if strings.TrimSpace(newPath) == "" {
		return services.Wrap(services.ErrValidation, "catalog", "update track path", "new path is empty", nil)
	}
	return c.withTx(ctx, "update track path", func(tx *sql.Tx) error {
		var oldPath string
		err := tx.QueryRowContext(ctx, `SELECT file_path FROM tracks WHERE id = ?`, id).Scan(&oldPath)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "catalog", "update track path", "track "+id, nil)
		}
		if err != nil {
			return fmt.Errorf("load track path: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tracks SET file_path = ? WHERE id = ?`, newPath, id); err != nil {
			return fmt.Errorf("update track path: %w", err)
		}
		return c.appendOperation(ctx, tx, OpUpdatePath, id, map[string]string{
			"from": oldPath,
			"to":   newPath,
		})
	})
}

// DeleteTrack removes the track together with its device path overrides and
// playlist memberships.
func (c *Catalog) DeleteTrack(ctx context.Context, id string) error {
	return c.withTx(ctx, "delete track", func(tx *sql.Tx) error {
		deleted, err := c.deleteTrackTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return services.Wrap(services.ErrNotFound, "catalog", "delete track", "track "+id, nil)
		}
		return nil
	})
}

// DeleteTrackByPath removes every track cataloged at path. It reports whether
// any row was removed; a missing row is not an error.
func (c *Catalog) DeleteTrackByPath(ctx context.Context, path string) (bool, error) {
	var removed bool
	err := c.withTx(ctx, "delete track by path", func(tx *sql.Tx) error {
		removed = false
		ids, err := collectStrings(ctx, tx, `SELECT id FROM tracks WHERE file_path = ?`, path)
		if err != nil {
			return err
		}
		for _, id := range ids {
			deleted, err := c.deleteTrackTx(ctx, tx, id)
			if err != nil {
				return err
			}
			removed = removed || deleted
		}
		return nil
	})
	return removed, err
}

func (c *Catalog) deleteTrackTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var path string
	err := tx.QueryRowContext(ctx, `SELECT file_path FROM tracks WHERE id = ?`, id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load track: %w", err)
	}

	playlists, err := collectStrings(ctx, tx, `SELECT DISTINCT playlist_id FROM playlist_tracks WHERE track_id = ?`, id)
	if err != nil {
		return false, err
	}

	statements := []string{
		`DELETE FROM device_paths WHERE track_id = ?`,
		`DELETE FROM playlist_tracks WHERE track_id = ?`,
		`DELETE FROM tracks WHERE id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return false, fmt.Errorf("delete track: %w", err)
		}
	}
	for _, playlistID := range playlists {
		if err := refreshPlaylistCount(ctx, tx, playlistID); err != nil {
			return false, err
		}
	}
	if err := c.appendOperation(ctx, tx, OpDelete, id, map[string]string{"filePath": path}); err != nil {
		return false, err
	}
	if err := pruneOrphans(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}

func collectStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if value.Valid {
			values = append(values, value.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return values, nil
}

func ensureContextRow(ctx context.Context, db *sql.DB, query string, args ...any) *sql.Row {
	return db.QueryRowContext(ensureContext(ctx), query, args...)
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tracksync/internal/services"
)

// GetOrCreateArtist returns the id of the artist with the given name,
// creating the row when needed.
func (c *Catalog) GetOrCreateArtist(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, services.Wrap(services.ErrValidation, "catalog", "artist", "artist name is empty", nil)
	}
	var id int64
	err := c.withTx(ctx, "get or create artist", func(tx *sql.Tx) error {
		var err error
		id, err = getOrCreateArtist(ctx, tx, name)
		return err
	})
	return id, err
}

// GetOrCreateAlbum returns the id of the album keyed by (title, artistID),
// creating the row when needed. An artistID of zero means no artist.
func (c *Catalog) GetOrCreateAlbum(ctx context.Context, title string, artistID int64) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, services.Wrap(services.ErrValidation, "catalog", "album", "album title is empty", nil)
	}
	var artist *int64
	if artistID > 0 {
		artist = &artistID
	}
	var id int64
	err := c.withTx(ctx, "get or create album", func(tx *sql.Tx) error {
		var err error
		id, err = getOrCreateAlbum(ctx, tx, title, artist)
		return err
	})
	return id, err
}

func getOrCreateArtist(ctx context.Context, q queryer, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO artists (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("insert artist: %w", err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM artists WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select artist: %w", err)
	}
	return id, nil
}

func getOrCreateAlbum(ctx context.Context, q queryer, title string, artistID *int64) (int64, error) {
	title = strings.TrimSpace(title)
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM albums WHERE title = ? AND artist_id IS ?`, title, nullableInt64(artistID)).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("select album: %w", err)
	}
	res, err := q.ExecContext(ctx, `INSERT INTO albums (title, artist_id) VALUES (?, ?)`, title, nullableInt64(artistID))
	if err != nil {
		return 0, fmt.Errorf("insert album: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("album id: %w", err)
	}
	return id, nil
}

// linkEntities resolves the artist row for the track artist and the album row
// keyed by the album artist (falling back to the track artist).
func linkEntities(ctx context.Context, q queryer, artist, albumArtist, album string) (*int64, *int64, error) {
	var artistID *int64
	if strings.TrimSpace(artist) != "" {
		id, err := getOrCreateArtist(ctx, q, artist)
		if err != nil {
			return nil, nil, err
		}
		artistID = &id
	}

	if strings.TrimSpace(album) == "" {
		return artistID, nil, nil
	}

	albumArtistID := artistID
	if strings.TrimSpace(albumArtist) != "" && strings.TrimSpace(albumArtist) != strings.TrimSpace(artist) {
		id, err := getOrCreateArtist(ctx, q, albumArtist)
		if err != nil {
			return nil, nil, err
		}
		albumArtistID = &id
	}
	albumID, err := getOrCreateAlbum(ctx, q, album, albumArtistID)
	if err != nil {
		return nil, nil, err
	}
	return artistID, &albumID, nil
}

// pruneOrphans removes albums and artists no track references. Albums go
// first because they can be the last reference to an album artist.
func pruneOrphans(ctx context.Context, q queryer) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM albums
        WHERE id NOT IN (SELECT album_id FROM tracks WHERE album_id IS NOT NULL)`); err != nil {
		return fmt.Errorf("prune albums: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM artists
        WHERE id NOT IN (SELECT artist_id FROM tracks WHERE artist_id IS NOT NULL)
          AND id NOT IN (SELECT artist_id FROM albums WHERE artist_id IS NOT NULL)`); err != nil {
		return fmt.Errorf("prune artists: %w", err)
	}
	return nil
}

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

// CreatePlaylist creates an empty playlist.
func (c *Catalog) CreatePlaylist(ctx context.Context, name string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create playlist", "name is empty", nil)
	}
	now := time.Now().UnixMilli()
	playlist := &Playlist{ID: uuid.NewString(), Name: name, CreatedAt: millisToTime(now), ModifiedAt: millisToTime(now)}
	err := c.withTx(ctx, "create playlist", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO playlists (id, name, created_at, modified_at, track_count) VALUES (?, ?, ?, ?, 0)`,
			playlist.ID, playlist.Name, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert playlist: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return playlist, nil
}

// AddToPlaylist appends a track to the end of a playlist.
func (c *Catalog) AddToPlaylist(ctx context.Context, playlistID, trackID string) error {
	return c.withTx(ctx, "add to playlist", func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM playlists WHERE id = ?`, playlistID).Scan(&count); err != nil {
			return fmt.Errorf("lookup playlist: %w", err)
		}
		if count == 0 {
			return services.Wrap(services.ErrNotFound, "catalog", "add to playlist", "playlist "+playlistID, nil)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tracks WHERE id = ?`, trackID).Scan(&count); err != nil {
			return fmt.Errorf("lookup track: %w", err)
		}
		if count == 0 {
			return services.Wrap(services.ErrNotFound, "catalog", "add to playlist", "track "+trackID, nil)
		}
		var position int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_tracks WHERE playlist_id = ?`, playlistID,
		).Scan(&position); err != nil {
			return fmt.Errorf("next playlist position: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)`,
			playlistID, trackID, position,
		); err != nil {
			return fmt.Errorf("insert playlist track: %w", err)
		}
		return refreshPlaylistCount(ctx, tx, playlistID)
	})
}

// Playlists lists every playlist ordered by name.
func (c *Catalog) Playlists(ctx context.Context) ([]Playlist, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ensureContext(ctx),
		`SELECT id, name, created_at, modified_at, track_count FROM playlists ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()
	var playlists []Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// GetPlaylist fetches a playlist by id. A missing playlist yields nil, nil.
func (c *Catalog) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	p, err := scanPlaylist(db.QueryRowContext(ensureContext(ctx),
		`SELECT id, name, created_at, modified_at, track_count FROM playlists WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// PlaylistTracks returns the playlist's tracks in position order.
func (c *Catalog) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	columns := "t." + strings.ReplaceAll(trackColumns, ", ", ", t.")
	return c.queryTracks(ctx,
		`SELECT `+columns+` FROM playlist_tracks pt JOIN tracks t ON t.id = pt.track_id
         WHERE pt.playlist_id = ? ORDER BY pt.position`, playlistID)
}

func scanPlaylist(scanner interface{ Scan(dest ...any) error }) (*Playlist, error) {
	var (
		p          Playlist
		createdAt  sql.NullInt64
		modifiedAt sql.NullInt64
		trackCount sql.NullInt64
	)
	if err := scanner.Scan(&p.ID, &p.Name, &createdAt, &modifiedAt, &trackCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan playlist: %w", err)
	}
	p.CreatedAt = millisToTime(createdAt.Int64)
	p.ModifiedAt = millisToTime(modifiedAt.Int64)
	p.TrackCount = int(trackCount.Int64)
	return &p, nil
}

func refreshPlaylistCount(ctx context.Context, q queryer, playlistID string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE playlists
         SET track_count = (SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?), modified_at = ?
         WHERE id = ?`,
		playlistID, time.Now().UnixMilli(), playlistID,
	); err != nil {
		return fmt.Errorf("refresh playlist count: %w", err)
	}
	return nil
}

package catalog_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"tracksync/internal/catalog"
	"tracksync/internal/testsupport"
)

const legacySchema = `
CREATE TABLE tracks (
    id TEXT PRIMARY KEY,
    file_path TEXT NOT NULL,
    file_hash TEXT,
    artist TEXT,
    title TEXT,
    album TEXT,
    tempo INTEGER,
    length INTEGER,
    file_size INTEGER,
    bitrate INTEGER,
    format TEXT,
    last_modified REAL,
    date_added REAL,
    is_duplicate BOOLEAN DEFAULT 0,
    duplicate_group_id TEXT,
    keep_status TEXT DEFAULT 'keep'
);
CREATE TABLE device_paths (
    device_id TEXT,
    track_id TEXT,
    local_path TEXT
);
CREATE TABLE sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT,
    updated_at INTEGER
);
INSERT INTO tracks (id, file_path, artist, title, album, tempo, last_modified, date_added)
VALUES ('legacy-1', '/music/old.mp3', 'Old Band', 'Old Song', 'Old Album', 98, 1700000000000.6, 1690000000000.2);
INSERT INTO sync_metadata (key, value, updated_at) VALUES ('device_id', 'legacy-device', 1);
`

func writeLegacyCatalog(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(legacySchema); err != nil {
		t.Fatalf("create legacy schema: %v", err)
	}
}

func TestOpenUpgradesLegacyCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeLegacyCatalog(t, cfg.CatalogPath())
	ctx := context.Background()

	cat := testsupport.MustOpenCatalog(t, cfg)
	if cat.DeviceID() != "legacy-device" {
		t.Fatalf("expected legacy device id kept, got %q", cat.DeviceID())
	}

	track := testsupport.MustTrackByPath(t, cat, "/music/old.mp3")
	if track.ID != "legacy-1" || track.Title != "Old Song" {
		t.Fatalf("legacy row not preserved: %+v", track)
	}
	if track.LastModified != 1_700_000_000_001 || track.DateAdded != 1_690_000_000_000 {
		t.Fatalf("fractional timestamps not rounded: %d %d", track.LastModified, track.DateAdded)
	}
	if track.BPM == nil || *track.BPM != 98 {
		t.Fatalf("expected tempo preserved, got %v", track.BPM)
	}
	if track.ArtistID == nil || track.AlbumID == nil {
		t.Fatalf("expected legacy row linked to entities: %+v", track)
	}

	upgraded := catalog.Track{FilePath: "/music/new.mp3", Artist: "New", AlbumArtist: "Various", Album: "Mix", Title: "Song", TrackNo: testsupport.Int(4)}
	testsupport.InsertTrack(t, cat, upgraded)
	stored := testsupport.MustTrackByPath(t, cat, "/music/new.mp3")
	if stored.AlbumArtist != "Various" || stored.TrackNo == nil || *stored.TrackNo != 4 {
		t.Fatalf("new columns not writable: %+v", stored)
	}

	playlist, err := cat.CreatePlaylist(ctx, "After upgrade")
	if err != nil {
		t.Fatalf("CreatePlaylist on upgraded catalog: %v", err)
	}
	if err := cat.AddToPlaylist(ctx, playlist.ID, "legacy-1"); err != nil {
		t.Fatalf("AddToPlaylist: %v", err)
	}
	if err := cat.SetDevicePath(ctx, "legacy-1", "/elsewhere/old.mp3"); err != nil {
		t.Fatalf("SetDevicePath on legacy device_paths: %v", err)
	}

	health, err := cat.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.Healthy() || health.SchemaVersion == 0 {
		t.Fatalf("unexpected health after upgrade: %+v", health)
	}
}

func TestReopenCurrentCatalogIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	cat := testsupport.MustOpenCatalog(t, cfg)
	testsupport.InsertTrack(t, cat, catalog.Track{FilePath: "/m/a.mp3", Artist: "A", Title: "T"})
	if err := cat.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenCatalog(t, cfg)
	if err := reopened.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.CatalogPath())
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer db.Close()
	var rows int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&rows); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected one migration record after reopen, got %d", rows)
	}
	var tracks int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&tracks); err != nil {
		t.Fatalf("count tracks: %v", err)
	}
	if tracks != 1 {
		t.Fatalf("expected data preserved, got %d tracks", tracks)
	}
}

package testsupport

import (
	"context"
	"testing"

	"tracksync/internal/catalog"
	"tracksync/internal/config"
)

// MustOpenCatalog opens the catalog described by cfg and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.Open(context.Background(), catalog.FromConfig(cfg))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() {
		_ = cat.Close()
	})
	return cat
}

// InsertTrack stores track and returns it with its assigned id.
func InsertTrack(t testing.TB, cat *catalog.Catalog, track catalog.Track) catalog.Track {
	t.Helper()
	if _, err := cat.InsertOrReplaceTrack(context.Background(), &track); err != nil {
		t.Fatalf("insert track %s: %v", track.FilePath, err)
	}
	return track
}

// MustTrackByPath fetches the track at path, failing when absent.
func MustTrackByPath(t testing.TB, cat *catalog.Catalog, path string) catalog.Track {
	t.Helper()
	track, err := cat.GetTrackByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("get track %s: %v", path, err)
	}
	if track == nil {
		t.Fatalf("expected track at %s", path)
	}
	return *track
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

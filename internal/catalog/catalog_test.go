package catalog_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"tracksync/internal/catalog"
	"tracksync/internal/services"
	"tracksync/internal/testsupport"
)

func TestOpenCreatesCatalogAndDeviceID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	cat, err := catalog.Open(ctx, catalog.FromConfig(cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	first := cat.DeviceID()
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected generated uuid device id, got %q", first)
	}
	if err := cat.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(cfg.CatalogPath()); err != nil {
		t.Fatalf("expected catalog file: %v", err)
	}

	reopened := testsupport.MustOpenCatalog(t, cfg)
	if reopened.DeviceID() != first {
		t.Fatalf("device id regenerated: %q != %q", reopened.DeviceID(), first)
	}
	name, ok, err := reopened.GetMetadata(ctx, catalog.MetaDeviceName)
	if err != nil || !ok || name != "test-device" {
		t.Fatalf("expected device name metadata, got %q ok=%v err=%v", name, ok, err)
	}
}

func TestOpenWithExplicitDeviceIDOverwrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	original := testsupport.MustOpenCatalog(t, cfg)
	generated := original.DeviceID()
	if err := original.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	opts := catalog.FromConfig(cfg)
	opts.DeviceID = "device-b"
	joined, err := catalog.Open(ctx, opts)
	if err != nil {
		t.Fatalf("Open with device id: %v", err)
	}
	if joined.DeviceID() != "device-b" {
		t.Fatalf("expected explicit id, got %q", joined.DeviceID())
	}
	if err := joined.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again := testsupport.MustOpenCatalog(t, cfg)
	if again.DeviceID() != "device-b" || again.DeviceID() == generated {
		t.Fatalf("expected persisted explicit id, got %q", again.DeviceID())
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := catalog.Open(context.Background(), catalog.Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCloseCheckpointsWAL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	cat, err := catalog.Open(ctx, catalog.FromConfig(cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.InsertTrack(t, cat, catalog.Track{FilePath: "/music/a.mp3", Title: "A"})
	if err := cat.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if info, err := os.Stat(cfg.CatalogPath() + "-wal"); err == nil && info.Size() > 0 {
		t.Fatalf("expected WAL to be checkpointed, size=%d", info.Size())
	}
	if err := cat.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
	if _, err := cat.GetAllTracks(ctx); err == nil {
		t.Fatal("expected error reading from closed catalog")
	}

	reopened := testsupport.MustOpenCatalog(t, cfg)
	testsupport.MustTrackByPath(t, reopened, "/music/a.mp3")
}

func TestMetadataRoundTrip(t *testing.T) {
	cat := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, ok, err := cat.GetMetadata(ctx, catalog.MetaMusicRootPath); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := cat.SetMetadata(ctx, catalog.MetaMusicRootPath, "/music"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := cat.SetMetadata(ctx, catalog.MetaMusicRootPath, "/srv/music"); err != nil {
		t.Fatalf("SetMetadata overwrite: %v", err)
	}
	value, ok, err := cat.GetMetadata(ctx, catalog.MetaMusicRootPath)
	if err != nil || !ok || value != "/srv/music" {
		t.Fatalf("unexpected metadata %q ok=%v err=%v", value, ok, err)
	}
	all, err := cat.Metadata(ctx)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if all[catalog.MetaDeviceID] != cat.DeviceID() {
		t.Fatalf("expected device id in metadata listing: %v", all)
	}
	if err := cat.SetMetadata(ctx, " ", "x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank key, got %v", err)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cat := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.InsertTrack(t, cat, catalog.Track{FilePath: "/m/a.flac", Artist: "A", Album: "X", Title: "One", FileHash: "h1", FileSizeBytes: testsupport.Int64(100)})
	testsupport.InsertTrack(t, cat, catalog.Track{FilePath: "/m/b.flac", Artist: "B", Title: "Two", FileSizeBytes: testsupport.Int64(50)})

	stats, err := cat.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Tracks != 2 || stats.Artists != 2 || stats.Albums != 1 || stats.HashedTracks != 1 || stats.TotalBytes != 150 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Operations != 2 {
		t.Fatalf("expected two logged inserts, got %d", stats.Operations)
	}

	health, err := cat.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.Healthy() || health.JournalMode != "wal" || health.SchemaVersion == 0 || health.Stale {
		t.Fatalf("unexpected health: %+v", health)
	}
}

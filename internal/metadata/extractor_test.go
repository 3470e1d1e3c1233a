package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.senan.xyz/taglib"

	"tracksync/internal/logging"
	"tracksync/internal/services"
	"tracksync/internal/testsupport"
)

func stubExtractor(root string, tags map[string][]string, props taglib.Properties, propsErr error) *Extractor {
	e := NewExtractor(root, logging.NewNop())
	e.readTags = func(string) (map[string][]string, error) {
		if tags == nil {
			return nil, errors.New("invalid file")
		}
		return tags, nil
	}
	e.readProperties = func(string) (taglib.Properties, error) {
		return props, propsErr
	}
	e.readStreamInfo = func(string) (streamInfo, error) {
		return streamInfo{}, errors.New("not flac")
	}
	return e
}

func TestExtractPrefersEmbeddedTags(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Folder Artist", "Folder Album", "05 - File Artist - File Title.mp3")
	testsupport.WriteContent(t, path, "ID3 payload")

	tags := map[string][]string{
		taglib.Title:       {"Tag Title"},
		taglib.Artist:      {"Tag Artist"},
		taglib.AlbumArtist: {"Tag Album Artist"},
		taglib.Album:       {"Tag Album"},
		taglib.TrackNumber: {"3/12"},
		"BPM":              {"127.6"},
	}
	props := taglib.Properties{Length: 241500 * time.Millisecond, Bitrate: 320}
	meta, err := stubExtractor(root, tags, props, nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if meta.Title != "Tag Title" || meta.Artist != "Tag Artist" || meta.AlbumArtist != "Tag Album Artist" || meta.Album != "Tag Album" {
		t.Fatalf("expected tag values, got %+v", meta)
	}
	if meta.TrackNo == nil || *meta.TrackNo != 3 {
		t.Fatalf("expected track 3, got %v", meta.TrackNo)
	}
	if meta.BPM == nil || *meta.BPM != 128 {
		t.Fatalf("expected bpm 128, got %v", meta.BPM)
	}
	if meta.DurationSeconds == nil || *meta.DurationSeconds != 242 {
		t.Fatalf("expected duration 242, got %v", meta.DurationSeconds)
	}
	if meta.BitrateKbps == nil || *meta.BitrateKbps != 320 {
		t.Fatalf("expected bitrate 320, got %v", meta.BitrateKbps)
	}
	if meta.Format != "mp3" || meta.TagSource != "taglib" {
		t.Fatalf("unexpected format/source %q/%q", meta.Format, meta.TagSource)
	}
}

func TestExtractFallsBackToFilenameAndFolders(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Portishead", "Dummy", "04_-_Glory_Box.wav")
	testsupport.WriteFile(t, path, 64)

	meta, err := stubExtractor(root, nil, taglib.Properties{}, errors.New("invalid file")).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.TrackNo == nil || *meta.TrackNo != 4 {
		t.Fatalf("expected track 4 from file name, got %v", meta.TrackNo)
	}
	if meta.Title != "Glory Box" {
		t.Fatalf("expected title from file name, got %q", meta.Title)
	}
	if meta.Album != "Dummy" || meta.Artist != "Portishead" {
		t.Fatalf("expected folder fallbacks, got artist=%q album=%q", meta.Artist, meta.Album)
	}
	if meta.Format != "wav" {
		t.Fatalf("expected extension format, got %q", meta.Format)
	}
	if meta.FileSizeBytes != 64 || meta.DurationSeconds != nil || meta.BitrateKbps != nil {
		t.Fatalf("unexpected size/properties: %+v", meta)
	}
	if meta.TagSource != "filename" {
		t.Fatalf("expected filename source, got %q", meta.TagSource)
	}
}

func TestExtractReplacesUnknownAlbumWithFolder(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Artist", "Real Album", "song.mp3")
	testsupport.WriteFile(t, path, 10)

	tags := map[string][]string{taglib.Title: {"Song"}, taglib.Artist: {"unknown"}, taglib.Album: {"Unknown"}}
	meta, err := stubExtractor(root, tags, taglib.Properties{}, nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Album != "Real Album" || meta.Artist != "Artist" {
		t.Fatalf("expected folder names to replace Unknown, got %+v", meta)
	}
}

func TestExtractHashesContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp3")
	testsupport.WriteContent(t, path, "same bytes")

	meta, err := stubExtractor(root, nil, taglib.Properties{}, errors.New("x")).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	sum := sha256.Sum256([]byte("same bytes"))
	if meta.FileHash != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected hash %q", meta.FileHash)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if meta.LastModified != info.ModTime().UnixMilli() {
		t.Fatalf("expected mtime %d, got %d", info.ModTime().UnixMilli(), meta.LastModified)
	}
}

func TestExtractUnreadableFile(t *testing.T) {
	_, err := NewExtractor("", logging.NewNop()).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	if !errors.Is(err, services.ErrUnreadable) {
		t.Fatalf("expected unreadable error, got %v", err)
	}
}

func TestExtractToleratesUnparseableAudio(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Band", "Record", "02 - Band - Track.flac")
	testsupport.WriteFile(t, path, 2048)

	meta, err := NewExtractor(root, logging.NewNop()).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Title != "Track" || meta.Artist != "Band" || meta.Album != "Record" {
		t.Fatalf("expected filename fallbacks, got %+v", meta)
	}
	if meta.FileHash == "" {
		t.Fatal("expected content hash")
	}
	if meta.Format != "flac" {
		t.Fatalf("expected extension fallback, got %q", meta.Format)
	}
}

func TestExtractFLACStreamInfoFallback(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.flac")
	testsupport.WriteFile(t, path, 1_000_000)

	e := stubExtractor(root, map[string][]string{}, taglib.Properties{}, errors.New("no properties"))
	e.readStreamInfo = func(string) (streamInfo, error) {
		return streamInfo{duration: 10 * time.Second}, nil
	}
	meta, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.DurationSeconds == nil || *meta.DurationSeconds != 10 {
		t.Fatalf("expected 10s duration, got %v", meta.DurationSeconds)
	}
	if meta.BitrateKbps == nil || *meta.BitrateKbps != 800 {
		t.Fatalf("expected 800kbps, got %v", meta.BitrateKbps)
	}
}

func TestExtractHonorsCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	testsupport.WriteFile(t, path, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor("", logging.NewNop()).Extract(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestDetectFormatSniffsContainer(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]byte{
		"real-flac.mp3": []byte("fLaC\x00\x00\x00\x22rest"),
		"riff.bin":      []byte("RIFF\x00\x00\x00\x00WAVEfmt "),
		"mp4.aac":       []byte("\x00\x00\x00\x20ftypM4A "),
		"ogg.wma":       []byte("OggS\x00\x02\x00\x00"),
	}
	want := map[string]string{"real-flac.mp3": "flac", "riff.bin": "wav", "mp4.aac": "m4a", "ogg.wma": "ogg"}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if got := detectFormat(path); got != want[name] {
			t.Fatalf("detectFormat(%s) = %q, want %q", name, got, want[name])
		}
	}
	plain := filepath.Join(dir, "plain.OGG")
	if err := os.WriteFile(plain, []byte("text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := detectFormat(plain); got != "ogg" {
		t.Fatalf("expected extension fallback, got %q", got)
	}
}

func TestIsSupported(t *testing.T) {
	for _, path := range []string{"a.MP3", "b.flac", "c.wma"} {
		if !IsSupported(path) {
			t.Fatalf("expected %s supported", path)
		}
	}
	for _, path := range []string{"cover.jpg", "notes", "d.opus"} {
		if IsSupported(path) {
			t.Fatalf("expected %s unsupported", path)
		}
	}
}

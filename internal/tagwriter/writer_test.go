package tagwriter_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"

	"tracksync/internal/catalog"
	"tracksync/internal/logging"
	"tracksync/internal/services"
	"tracksync/internal/tagwriter"
	"tracksync/internal/testsupport"
)

func str(v string) *string { return &v }

func readTag(t *testing.T, path string) *id3v2.Tag {
	t.Helper()
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open tag: %v", err)
	}
	t.Cleanup(func() { _ = tag.Close() })
	return tag
}

func textFrame(tag *id3v2.Tag, id string) string {
	return tag.GetTextFrame(id).Text
}

func TestWriteUpdatesMP3Frames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	testsupport.WriteFile(t, path, 2048)
	seed, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seed.SetGenre("Jazz")
	seed.SetTitle("Old Title")
	seed.AddTextFrame("TBPM", seed.DefaultEncoding(), "90")
	if err := seed.Save(); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	_ = seed.Close()

	w := tagwriter.New(logging.NewNop())
	err = w.Write(context.Background(), path, catalog.TrackUpdate{
		Title:       str("Feeling Good"),
		Artist:      str("Nina Simone"),
		AlbumArtist: str("Nina Simone"),
		Album:       str("I Put a Spell on You"),
		TrackNo:     testsupport.Int(7),
		ClearBPM:    true,
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	tag := readTag(t, path)
	if tag.Title() != "Feeling Good" || tag.Artist() != "Nina Simone" || tag.Album() != "I Put a Spell on You" {
		t.Fatalf("unexpected tags title=%q artist=%q album=%q", tag.Title(), tag.Artist(), tag.Album())
	}
	if got := textFrame(tag, "TPE2"); got != "Nina Simone" {
		t.Fatalf("album artist = %q", got)
	}
	if got := textFrame(tag, "TRCK"); got != "7" {
		t.Fatalf("track number = %q", got)
	}
	if got := textFrame(tag, "TBPM"); got != "" {
		t.Fatalf("bpm should be cleared, got %q", got)
	}
	if tag.Genre() != "Jazz" {
		t.Fatalf("unrelated frames must survive, genre = %q", tag.Genre())
	}
}

func TestWriteKeepsAudioPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.MP3")
	payload := bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 256)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tagwriter.New(nil).Write(context.Background(), path, catalog.TrackUpdate{Title: str("T")}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasSuffix(data, payload) {
		t.Fatal("audio frames were altered")
	}
}

func TestWriteRejectsUnsupportedFormats(t *testing.T) {
	for _, name := range []string{"song.flac", "song.m4a", "song.ogg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			testsupport.WriteContent(t, path, "untouched")
			err := tagwriter.New(nil).Write(context.Background(), path, catalog.TrackUpdate{Title: str("T")})
			if !errors.Is(err, services.ErrUnsupportedFormat) {
				t.Fatalf("expected unsupported format, got %v", err)
			}
			data, _ := os.ReadFile(path)
			if string(data) != "untouched" {
				t.Fatalf("file modified: %q", data)
			}
		})
	}
}

func TestWriteMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mp3")
	err := tagwriter.New(nil).Write(context.Background(), path, catalog.TrackUpdate{Title: str("T")})
	if !errors.Is(err, services.ErrUnreadable) {
		t.Fatalf("expected unreadable, got %v", err)
	}
}

func TestSupports(t *testing.T) {
	if !tagwriter.Supports("/a/b.Mp3") || tagwriter.Supports("/a/b.flac") {
		t.Fatal("Supports mismatch")
	}
}

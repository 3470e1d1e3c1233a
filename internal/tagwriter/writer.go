// Package tagwriter writes edited track metadata back into audio files.
// Only ID3v2 tags in .mp3 files are written; other containers are reported
// as unsupported and left untouched.
package tagwriter

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"

	"tracksync/internal/catalog"
	"tracksync/internal/logging"
	"tracksync/internal/services"
)

// ID3v2.4 frame ids written besides title, artist and album.
const (
	frameAlbumArtist = "TPE2"
	frameTrackNumber = "TRCK"
	frameBPM         = "TBPM"
)

// Writer updates embedded tags.
type Writer struct {
	logger *slog.Logger
}

// New builds a writer.
func New(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{logger: logging.NewComponentLogger(logger, "tagwriter")}
}

// Supports reports whether tags can be written to path.
func Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}

// Write applies the fields set in update to the file's tags, keeping every
// other frame. An empty string removes the frame. Formats other than MP3
// fail with services.ErrUnsupportedFormat.
func (w *Writer) Write(ctx context.Context, path string, update catalog.TrackUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !Supports(path) {
		ext := strings.ToLower(filepath.Ext(path))
		logging.WarnWithContext(w.logger, "tag writing not supported", "tag_write_unsupported",
			logging.Path(path),
			logging.String("format", ext),
			logging.String(logging.FieldErrorHint, "only .mp3 files can be retagged"),
			logging.String(logging.FieldImpact, "catalog updated but file tags unchanged"),
		)
		return services.Wrap(services.ErrUnsupportedFormat, "tagwriter", "write", "cannot write tags to "+ext+" files", nil)
	}
	if update.Empty() {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return services.Wrap(services.ErrUnreadable, "tagwriter", "open", path, err)
	}
	defer tag.Close()

	enc := tag.DefaultEncoding()
	setText := func(id string, value *string) {
		if value == nil {
			return
		}
		if *value == "" {
			tag.DeleteFrames(id)
			return
		}
		tag.AddTextFrame(id, enc, *value)
	}
	setNumber := func(id string, value *int, clear bool) {
		switch {
		case clear:
			tag.DeleteFrames(id)
		case value != nil:
			tag.AddTextFrame(id, enc, strconv.Itoa(*value))
		}
	}
	setText(tag.CommonID("Title"), update.Title)
	setText(tag.CommonID("Artist"), update.Artist)
	setText(frameAlbumArtist, update.AlbumArtist)
	setText(tag.CommonID("Album/Movie/Show title"), update.Album)
	setNumber(frameTrackNumber, update.TrackNo, update.ClearTrackNo)
	setNumber(frameBPM, update.BPM, update.ClearBPM)

	if err := tag.Save(); err != nil {
		return services.Wrap(services.ErrUnreadable, "tagwriter", "save", path, err)
	}
	w.logger.Debug("tags written", logging.Path(path))
	return nil
}

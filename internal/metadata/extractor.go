package metadata

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.senan.xyz/taglib"

	"tracksync/internal/logging"
	"tracksync/internal/services"
)

// TrackMetadata is the result of extracting one audio file.
type TrackMetadata struct {
	Path            string
	Title           string
	Artist          string
	AlbumArtist     string
	Album           string
	TrackNo         *int
	BPM             *int
	DurationSeconds *int
	BitrateKbps     *int
	FileSizeBytes   int64
	Format          string
	FileHash        string
	// LastModified is the file modification time in Unix milliseconds.
	LastModified int64
	// TagSource is "taglib" when embedded tags were read, otherwise "filename".
	TagSource string
}

// Extractor reads metadata for files below a library root.
type Extractor struct {
	root   string
	logger *slog.Logger

	readTags       func(path string) (map[string][]string, error)
	readProperties func(path string) (taglib.Properties, error)
	readStreamInfo func(path string) (streamInfo, error)
}

// NewExtractor returns an extractor for files under root. The root bounds the
// folder-name fallbacks: folders at or above it never name an album or artist.
func NewExtractor(root string, logger *slog.Logger) *Extractor {
	if root != "" {
		root = filepath.Clean(root)
	}
	return &Extractor{
		root:           root,
		logger:         logging.NewComponentLogger(logger, "metadata"),
		readTags:       taglib.ReadTags,
		readProperties: taglib.ReadProperties,
		readStreamInfo: readFLACStreamInfo,
	}
}

// Extract reads path. Only a file that cannot be stat'ed fails with
// ErrUnreadable; tag and hash failures degrade to best-effort fields.
func (e *Extractor) Extract(ctx context.Context, path string) (*TrackMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadable, "metadata", "stat", path, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrUnreadable, "metadata", "stat", path+" is a directory", nil)
	}

	meta := &TrackMetadata{
		Path:          path,
		FileSizeBytes: info.Size(),
		LastModified:  info.ModTime().UnixMilli(),
		TagSource:     "filename",
	}

	e.applyEmbedded(path, meta)
	applyFilenameFallbacks(meta, path, e.root)
	meta.Format = detectFormat(path)

	hash, err := HashFile(ctx, path)
	switch {
	case err == nil:
		meta.FileHash = hash
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		logging.WarnWithContext(e.logger, "content hash unavailable", "hash_failed",
			logging.Path(path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check file permissions"),
			logging.String(logging.FieldImpact, "track is treated as unique during duplicate grouping"),
		)
	}
	return meta, nil
}

func (e *Extractor) applyEmbedded(path string, meta *TrackMetadata) {
	tags, err := e.readTags(path)
	if err != nil {
		e.logger.Debug("embedded tags unavailable",
			logging.Path(path),
			logging.Error(err),
		)
	} else {
		meta.TagSource = "taglib"
		meta.Title = firstTagValue(tags, taglib.Title, "TITLE")
		meta.Artist = firstTagValue(tags, taglib.Artist, "ARTIST")
		meta.AlbumArtist = firstTagValue(tags, taglib.AlbumArtist, "ALBUMARTIST", "ALBUM ARTIST")
		meta.Album = firstTagValue(tags, taglib.Album, "ALBUM")
		meta.TrackNo = parseLeadingInt(firstTagValue(tags, taglib.TrackNumber, "TRACKNUMBER", "TRCK"))
		meta.BPM = parseRoundedNumber(firstTagValue(tags, "BPM", "TBPM"))
	}

	props, err := e.readProperties(path)
	if err == nil && props.Length > 0 {
		meta.DurationSeconds = roundedSeconds(props.Length)
		if props.Bitrate > 0 {
			bitrate := int(props.Bitrate)
			meta.BitrateKbps = &bitrate
		}
		return
	}
	if !strings.EqualFold(filepath.Ext(path), ".flac") {
		return
	}
	stream, err := e.readStreamInfo(path)
	if err != nil || stream.duration <= 0 {
		return
	}
	meta.DurationSeconds = roundedSeconds(stream.duration)
	if meta.FileSizeBytes > 0 {
		bitrate := int(math.Round(float64(meta.FileSizeBytes) * 8 / stream.duration.Seconds() / 1000))
		if bitrate > 0 {
			meta.BitrateKbps = &bitrate
		}
	}
}

func firstTagValue(tags map[string][]string, keys ...string) string {
	for _, key := range keys {
		for _, value := range tags[key] {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func parseLeadingInt(value string) *int {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

func parseRoundedNumber(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

func roundedSeconds(d time.Duration) *int {
	seconds := int(math.Round(d.Seconds()))
	if seconds <= 0 {
		return nil
	}
	return &seconds
}

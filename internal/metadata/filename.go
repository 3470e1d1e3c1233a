package metadata

import (
	"path/filepath"
	"regexp"
	"strings"

	"tracksync/internal/textutil"
)

var (
	filenameSeparator = regexp.MustCompile(`\s*-\s*`)
	leadingTrackNo    = regexp.MustCompile(`^\d+[\s._-]*`)
	allDigits         = regexp.MustCompile(`^\d+$`)
)

// FilenameHints holds what a file name alone says about a track.
type FilenameHints struct {
	TrackNo *int
	Artist  string
	Title   string
}

// ParseFilename decomposes a base name without extension. It recognizes
// "NN - Artist - Title", "Artist - Title", and "NN - Title", with underscores
// treated as spaces.
func ParseFilename(base string) FilenameHints {
	hints := FilenameHints{TrackNo: parseLeadingInt(base)}

	normalized := strings.ReplaceAll(base, "_", " ")
	parts := filenameSeparator.Split(normalized, -1)
	firstIsNumber := len(parts) > 0 && allDigits.MatchString(strings.TrimSpace(parts[0]))
	switch {
	case len(parts) >= 3 && firstIsNumber:
		hints.Artist = strings.TrimSpace(parts[1])
		hints.Title = strings.TrimSpace(parts[2])
	case len(parts) >= 3:
		hints.Artist = strings.TrimSpace(parts[0])
		hints.Title = strings.TrimSpace(parts[1])
	case len(parts) == 2 && firstIsNumber:
		hints.Title = strings.TrimSpace(parts[1])
	case len(parts) == 2:
		hints.Artist = strings.TrimSpace(parts[0])
		hints.Title = strings.TrimSpace(parts[1])
	}
	if hints.Title == "" {
		hints.Title = strings.TrimSpace(leadingTrackNo.ReplaceAllString(normalized, ""))
	}
	return hints
}

func applyFilenameFallbacks(meta *TrackMetadata, path, root string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	hints := ParseFilename(base)

	if meta.TrackNo == nil {
		meta.TrackNo = hints.TrackNo
	}
	if meta.Artist == "" || meta.Title == "" {
		if meta.Artist == "" {
			meta.Artist = hints.Artist
		}
		if meta.Title == "" {
			meta.Title = hints.Title
		}
	}

	parent := filepath.Dir(path)
	if textutil.IsUnknown(meta.Album) {
		if name, ok := folderName(parent, root); ok {
			meta.Album = name
		}
	}
	if textutil.IsUnknown(meta.Artist) {
		if name, ok := folderName(filepath.Dir(parent), root); ok {
			meta.Artist = name
		}
	}
}

// folderName returns the base name of dir when it can stand in for an album
// or artist: strictly inside root (when root is known) and not a generic
// library folder name.
func folderName(dir, root string) (string, bool) {
	dir = filepath.Clean(dir)
	if root != "" {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", false
		}
	}
	name := filepath.Base(dir)
	switch name {
	case ".", string(filepath.Separator), "", "Music":
		return "", false
	}
	return name, true
}

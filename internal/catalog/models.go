package catalog

import (
	"time"

	"tracksync/internal/textutil"
)

// Well-known sync_metadata keys.
const (
	MetaDeviceID      = "device_id"
	MetaDeviceName    = "device_name"
	MetaMusicRootPath = "music_root_path"
)

// Operation types recorded in the operation log.
const (
	OpInsert        = "insert"
	OpUpdate        = "update"
	OpUpdatePath    = "update_path"
	OpDelete        = "delete"
	OpSetDevicePath = "set_device_path"
)

// Track is one audio file's last-known catalog state.
//
// Empty strings mean "absent"; they are stored as NULL. Numeric fields that a
// parser may not report are pointers so that "unknown" and zero stay distinct.
type Track struct {
	ID               string `json:"id"`
	FilePath         string `json:"filePath"`
	FileHash         string `json:"fileHash,omitempty"`
	Artist           string `json:"artist,omitempty"`
	AlbumArtist      string `json:"albumArtist,omitempty"`
	Title            string `json:"title,omitempty"`
	Album            string `json:"album,omitempty"`
	AlbumID          *int64 `json:"albumId,omitempty"`
	ArtistID         *int64 `json:"artistId,omitempty"`
	TrackNo          *int   `json:"trackNo,omitempty"`
	BPM              *int   `json:"bpm,omitempty"`
	DurationSeconds  *int   `json:"durationSeconds,omitempty"`
	FileSizeBytes    *int64 `json:"fileSizeBytes,omitempty"`
	BitrateKbps      *int   `json:"bitrateKbps,omitempty"`
	Format           string `json:"format,omitempty"`
	LastModified     int64  `json:"lastModified,omitempty"`
	DateAdded        int64  `json:"dateAdded,omitempty"`
	IsDuplicate      bool   `json:"isDuplicate,omitempty"`
	DuplicateGroupID string `json:"duplicateGroupId,omitempty"`
	KeepStatus       string `json:"keepStatus,omitempty"`
}

// DisplayArtist returns the album artist when present, otherwise the track artist.
func (t Track) DisplayArtist() string {
	return textutil.FirstNonEmpty(t.AlbumArtist, t.Artist)
}

// SizeBytes returns the recorded file size or zero when unknown.
func (t Track) SizeBytes() int64 {
	if t.FileSizeBytes == nil {
		return 0
	}
	return *t.FileSizeBytes
}

// TrackUpdate carries a partial edit. Nil fields are left untouched; the
// Clear flags store NULL.
type TrackUpdate struct {
	Title        *string `json:"title,omitempty"`
	Artist       *string `json:"artist,omitempty"`
	AlbumArtist  *string `json:"albumArtist,omitempty"`
	Album        *string `json:"album,omitempty"`
	TrackNo      *int    `json:"trackNo,omitempty"`
	BPM          *int    `json:"bpm,omitempty"`
	ClearTrackNo bool    `json:"clearTrackNo,omitempty"`
	ClearBPM     bool    `json:"clearBpm,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TrackUpdate) Empty() bool {
	return u.Title == nil && u.Artist == nil && u.AlbumArtist == nil && u.Album == nil &&
		u.TrackNo == nil && u.BPM == nil && !u.ClearTrackNo && !u.ClearBPM
}

func (u TrackUpdate) touchesEntities() bool {
	return u.Artist != nil || u.AlbumArtist != nil || u.Album != nil
}

// DuplicateGroup is a set of tracks sharing case-insensitive title, artist,
// and album text.
type DuplicateGroup struct {
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Album    string   `json:"album"`
	Count    int      `json:"count"`
	TrackIDs []string `json:"trackIds"`
}

// DuplicateReport summarizes textual duplicates across the catalog.
type DuplicateReport struct {
	TotalTracks  int              `json:"totalTracks"`
	UniqueTracks int              `json:"uniqueTracks"`
	Groups       []DuplicateGroup `json:"groups"`
}

// Playlist is a named, ordered list of tracks.
type Playlist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	TrackCount int       `json:"trackCount"`
}

// Operation is one append-only operation log entry.
type Operation struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"deviceId"`
	Type      string    `json:"type"`
	TrackID   string    `json:"trackId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      string    `json:"data,omitempty"`
}

// Stats summarizes catalog contents.
type Stats struct {
	Tracks       int   `json:"tracks"`
	Artists      int   `json:"artists"`
	Albums       int   `json:"albums"`
	Playlists    int   `json:"playlists"`
	HashedTracks int   `json:"hashedTracks"`
	DevicePaths  int   `json:"devicePaths"`
	TotalBytes   int64 `json:"totalBytes"`
	Operations   int   `json:"operations"`
}

// Health reports the state of the catalog file.
type Health struct {
	Path          string `json:"path"`
	Exists        bool   `json:"exists"`
	SizeBytes     int64  `json:"sizeBytes"`
	JournalMode   string `json:"journalMode"`
	Integrity     string `json:"integrity"`
	SchemaVersion int    `json:"schemaVersion"`
	Stale         bool   `json:"stale"`
}

// Healthy reports whether the integrity check passed.
func (h Health) Healthy() bool {
	return h.Exists && h.Integrity == "ok"
}

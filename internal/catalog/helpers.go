package catalog

import (
	"database/sql"
	"encoding/json"
	"math"
	"time"
)

const trackColumns = "id, file_path, file_hash, artist, album_artist, title, album, album_id, artist_id, track_no, tempo, length, file_size, bitrate, format, last_modified, date_added, is_duplicate, duplicate_group_id, keep_status"

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*Track, error) {
	var (
		id               string
		filePath         string
		fileHash         sql.NullString
		artist           sql.NullString
		albumArtist      sql.NullString
		title            sql.NullString
		album            sql.NullString
		albumID          sql.NullInt64
		artistID         sql.NullInt64
		trackNo          sql.NullInt64
		tempo            sql.NullInt64
		length           sql.NullInt64
		fileSize         sql.NullInt64
		bitrate          sql.NullInt64
		format           sql.NullString
		lastModified     sql.NullFloat64
		dateAdded        sql.NullFloat64
		isDuplicate      sql.NullBool
		duplicateGroupID sql.NullString
		keepStatus       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&filePath,
		&fileHash,
		&artist,
		&albumArtist,
		&title,
		&album,
		&albumID,
		&artistID,
		&trackNo,
		&tempo,
		&length,
		&fileSize,
		&bitrate,
		&format,
		&lastModified,
		&dateAdded,
		&isDuplicate,
		&duplicateGroupID,
		&keepStatus,
	); err != nil {
		return nil, err
	}

	track := &Track{
		ID:               id,
		FilePath:         filePath,
		FileHash:         fileHash.String,
		Artist:           artist.String,
		AlbumArtist:      albumArtist.String,
		Title:            title.String,
		Album:            album.String,
		AlbumID:          int64Ptr(albumID),
		ArtistID:         int64Ptr(artistID),
		TrackNo:          intPtr(trackNo),
		BPM:              intPtr(tempo),
		DurationSeconds:  intPtr(length),
		FileSizeBytes:    int64Ptr(fileSize),
		BitrateKbps:      intPtr(bitrate),
		Format:           format.String,
		IsDuplicate:      isDuplicate.Valid && isDuplicate.Bool,
		DuplicateGroupID: duplicateGroupID.String,
		KeepStatus:       keepStatus.String,
	}
	// Older writers stored fractional millisecond timestamps.
	if lastModified.Valid {
		track.LastModified = int64(math.Round(lastModified.Float64))
	}
	if dateAdded.Valid {
		track.DateAdded = int64(math.Round(dateAdded.Float64))
	}
	return track, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return int64(*value)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableMillis(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func marshalData(value any) string {
	if value == nil {
		return ""
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(data)
}

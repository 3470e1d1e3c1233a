package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// DetectDuplicates groups tracks whose title, album artist (falling back to
// artist), and album match case-insensitively.
func (c *Catalog) DetectDuplicates(ctx context.Context) (*DuplicateReport, error) {
	ctx = ensureContext(ctx)
	db, err := c.conn()
	if err != nil {
		return nil, err
	}

	report := &DuplicateReport{Groups: []DuplicateGroup{}}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&report.TotalTracks); err != nil {
		return nil, fmt.Errorf("count tracks: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
        SELECT
            MIN(title),
            MIN(COALESCE(NULLIF(album_artist, ''), artist)),
            MIN(album),
            COUNT(*) AS n,
            GROUP_CONCAT(id, ',')
        FROM tracks
        WHERE title IS NOT NULL OR artist IS NOT NULL OR album_artist IS NOT NULL OR album IS NOT NULL
        GROUP BY LOWER(title), LOWER(COALESCE(NULLIF(album_artist, ''), artist)), LOWER(album)
        HAVING n > 1
        ORDER BY n DESC, LOWER(MIN(title))`)
	if err != nil {
		return nil, fmt.Errorf("detect duplicates: %w", err)
	}
	defer rows.Close()

	redundant := 0
	for rows.Next() {
		var (
			title, artist, album sql.NullString
			group                DuplicateGroup
			ids                  string
		)
		if err := rows.Scan(&title, &artist, &album, &group.Count, &ids); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		group.Title = title.String
		group.Artist = artist.String
		group.Album = album.String
		group.TrackIDs = strings.Split(ids, ",")
		sort.Strings(group.TrackIDs)
		redundant += group.Count - 1
		report.Groups = append(report.Groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate groups: %w", err)
	}
	report.UniqueTracks = report.TotalTracks - redundant
	return report, nil
}

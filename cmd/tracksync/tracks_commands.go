package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tracksync/internal/catalog"
	"tracksync/internal/config"
	"tracksync/internal/services"
	"tracksync/internal/tagwriter"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "Inspect and edit cataloged tracks",
	}
	cmd.AddCommand(newTracksListCommand(ctx))
	cmd.AddCommand(newTracksEditCommand(ctx))
	cmd.AddCommand(newTracksPathCommand(ctx))
	return cmd
}

func newTracksListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var filter string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "tracks_list", func(s *session) error {
				tracks, err := s.catalog.GetAllTracks(s.ctx)
				if err != nil {
					return err
				}
				tracks = filterTracks(tracks, filter)
				if limit > 0 && len(tracks) > limit {
					tracks = tracks[:limit]
				}
				if jsonOutput {
					if tracks == nil {
						tracks = []catalog.Track{}
					}
					return writeJSON(cmd, tracks)
				}
				out := cmd.OutOrStdout()
				if len(tracks) == 0 {
					fmt.Fprintln(out, "No tracks cataloged")
					return nil
				}
				rows := make([][]string, 0, len(tracks))
				for _, t := range tracks {
					rows = append(rows, []string{
						shortID(t.ID), t.DisplayArtist(), t.Album, optionalInt(t.TrackNo), t.Title,
						strings.ToUpper(t.Format), formatDuration(t.DurationSeconds), formatBytes(t.SizeBytes()),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Artist", "Album", "#", "Title", "Format", "Length", "Size"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print tracks as JSON")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show tracks whose artist, album, or title contains this text")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many tracks")
	return cmd
}

func newTracksEditCommand(ctx *commandContext) *cobra.Command {
	var (
		title, artist, albumArtist, album string
		trackNo, bpm                      int
		clearTrackNo, clearBPM, writeTags bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id-or-path>",
		Short: "Edit a track's metadata in the catalog (and optionally in the file)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var update catalog.TrackUpdate
			setString := func(name string, value string, dst **string) {
				if flags.Changed(name) {
					v := strings.TrimSpace(value)
					*dst = &v
				}
			}
			setString("title", title, &update.Title)
			setString("artist", artist, &update.Artist)
			setString("album-artist", albumArtist, &update.AlbumArtist)
			setString("album", album, &update.Album)
			if flags.Changed("track") {
				update.TrackNo = &trackNo
			}
			if flags.Changed("bpm") {
				update.BPM = &bpm
			}
			update.ClearTrackNo = clearTrackNo
			update.ClearBPM = clearBPM
			if update.Empty() {
				return errors.New("nothing to change; pass at least one field flag")
			}

			return ctx.withSession(cmd, "tracks_edit", func(s *session) error {
				track, err := findTrack(s, args[0])
				if err != nil {
					return err
				}
				if err := s.catalog.UpdateTrack(s.ctx, track.ID, update); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated %s in the catalog\n", shortID(track.ID))
				if !writeTags {
					return nil
				}
				local, err := s.resolver.Resolve(s.ctx, *track)
				if err != nil {
					return err
				}
				err = tagwriter.New(s.logger).Write(s.ctx, local, update)
				switch {
				case errors.Is(err, services.ErrUnsupportedFormat):
					fmt.Fprintln(out, colorize(out, ansiYellow, "File tags unchanged: only .mp3 files can be retagged"))
					return nil
				case err != nil:
					return err
				}
				fmt.Fprintf(out, "Wrote tags to %s\n", local)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "Track title")
	flags.StringVar(&artist, "artist", "", "Track artist")
	flags.StringVar(&albumArtist, "album-artist", "", "Album artist")
	flags.StringVar(&album, "album", "", "Album title")
	flags.IntVar(&trackNo, "track", 0, "Track number")
	flags.IntVar(&bpm, "bpm", 0, "Tempo in beats per minute")
	flags.BoolVar(&clearTrackNo, "clear-track", false, "Remove the track number")
	flags.BoolVar(&clearBPM, "clear-bpm", false, "Remove the tempo")
	flags.BoolVar(&writeTags, "write-tags", false, "Also write the changes into the file's tags (MP3 only)")
	cmd.MarkFlagsMutuallyExclusive("track", "clear-track")
	cmd.MarkFlagsMutuallyExclusive("bpm", "clear-bpm")
	return cmd
}

func newTracksPathCommand(ctx *commandContext) *cobra.Command {
	var setPath string

	cmd := &cobra.Command{
		Use:   "path <id-or-path>",
		Short: "Show where a track lives on this device, or record a device-specific location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "tracks_path", func(s *session) error {
				track, err := findTrack(s, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if strings.TrimSpace(setPath) != "" {
					local, err := config.ExpandPath(setPath)
					if err != nil {
						return fmt.Errorf("resolve path: %w", err)
					}
					if err := s.resolver.SavePathMapping(s.ctx, track.ID, local); err != nil {
						return err
					}
					fmt.Fprintf(out, "Recorded %s for %s on %s\n", local, shortID(track.ID), s.catalog.DeviceName())
					return nil
				}
				local, err := s.resolver.Resolve(s.ctx, *track)
				if err != nil {
					return err
				}
				override, err := s.resolver.HasOverride(s.ctx, track.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Catalog path: %s\n", track.FilePath)
				fmt.Fprintf(out, "Local path:   %s\n", local)
				fmt.Fprintf(out, "Override:     %s\n", yesNo(override))
				if added := formatMillis(track.DateAdded); added != "" {
					fmt.Fprintf(out, "Added:        %s\n", added)
				}
				if modified := formatMillis(track.LastModified); modified != "" {
					fmt.Fprintf(out, "Modified:     %s\n", modified)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&setPath, "set", "", "Record this local path for the track on this device")
	return cmd
}

// findTrack resolves an id, an id prefix of at least eight characters, or a
// file path to a catalog row.
func findTrack(s *session, ref string) (*catalog.Track, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "cli", "find track", "track id or path is required", nil)
	}
	track, err := s.catalog.GetTrack(s.ctx, ref)
	if err != nil || track != nil {
		return track, err
	}
	if expanded, err := config.ExpandPath(ref); err == nil {
		track, err := s.catalog.GetTrackByPath(s.ctx, s.resolver.ToCatalogPath(expanded))
		if err != nil || track != nil {
			return track, err
		}
	}
	if len(ref) >= 8 {
		tracks, err := s.catalog.GetAllTracks(s.ctx)
		if err != nil {
			return nil, err
		}
		var match *catalog.Track
		for i := range tracks {
			if strings.HasPrefix(tracks[i].ID, ref) {
				if match != nil {
					return nil, services.Wrap(services.ErrValidation, "cli", "find track", "id prefix "+ref+" is ambiguous", nil)
				}
				match = &tracks[i]
			}
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "cli", "find track", ref, nil)
}

func filterTracks(tracks []catalog.Track, filter string) []catalog.Track {
	needle := strings.ToLower(strings.TrimSpace(filter))
	if needle == "" {
		return tracks
	}
	var out []catalog.Track
	for _, t := range tracks {
		haystack := strings.ToLower(strings.Join([]string{t.Artist, t.AlbumArtist, t.Album, t.Title}, "\x00"))
		if strings.Contains(haystack, needle) {
			out = append(out, t)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

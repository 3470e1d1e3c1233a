package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracksync/internal/catalog"
	"tracksync/internal/fileutil"
)

type statusReport struct {
	Device   string         `json:"device"`
	DeviceID string         `json:"deviceId"`
	Root     string         `json:"musicRoot"`
	Stats    catalog.Stats  `json:"stats"`
	Health   catalog.Health `json:"health"`
	Access   []accessCheck  `json:"access"`
}

// accessCheck is the outcome of probing one directory tracksync writes to.
type accessCheck struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

func checkDirectories(s *session) []accessCheck {
	dirs := []accessCheck{
		{Name: "Music root", Path: s.cfg.Library.Root},
		{Name: "Sync dir", Path: s.cfg.Catalog.SyncDir},
		{Name: "Log dir", Path: s.cfg.Paths.LogDir},
	}
	for i := range dirs {
		if err := fileutil.CheckWritableDir(dirs[i].Path); err != nil {
			dirs[i].Error = err.Error()
		}
	}
	return dirs
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog contents and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "status", func(s *session) error {
				stats, err := s.catalog.Stats(s.ctx)
				if err != nil {
					return err
				}
				health, err := s.catalog.CheckHealth(s.ctx)
				if err != nil {
					return err
				}
				report := statusReport{
					Device:   s.catalog.DeviceName(),
					DeviceID: s.catalog.DeviceID(),
					Root:     s.cfg.Library.Root,
					Stats:    stats,
					Health:   health,
					Access:   checkDirectories(s),
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				renderStatus(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func renderStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	healthy := colorize(out, ansiGreen, "healthy")
	if !report.Health.Healthy() {
		healthy = colorize(out, ansiRed, "unhealthy ("+report.Health.Integrity+")")
	}
	rows := [][]string{
		{"Catalog", report.Health.Path},
		{"Catalog size", formatBytes(report.Health.SizeBytes)},
		{"Journal mode", report.Health.JournalMode},
		{"Schema version", fmt.Sprint(report.Health.SchemaVersion)},
		{"Integrity", healthy},
		{"Changed externally", yesNo(report.Health.Stale)},
		{"Device", fmt.Sprintf("%s (%s)", report.Device, shortID(report.DeviceID))},
		{"Music root", report.Root},
		{"Tracks", formatCount(report.Stats.Tracks)},
		{"Hashed tracks", formatCount(report.Stats.HashedTracks)},
		{"Artists", formatCount(report.Stats.Artists)},
		{"Albums", formatCount(report.Stats.Albums)},
		{"Playlists", formatCount(report.Stats.Playlists)},
		{"Device paths", formatCount(report.Stats.DevicePaths)},
		{"Library size", formatBytes(report.Stats.TotalBytes)},
		{"Logged operations", formatCount(report.Stats.Operations)},
	}
	for _, check := range report.Access {
		value := colorize(out, ansiGreen, "read/write ok")
		if check.Error != "" {
			value = colorize(out, ansiRed, check.Error)
		}
		rows = append(rows, []string{check.Name + " access", value})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List tracks sharing the same title, artist, and album",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "duplicates", func(s *session) error {
				report, err := s.catalog.DetectDuplicates(s.ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s tracks, %s unique, %d duplicate groups\n",
					formatCount(report.TotalTracks), formatCount(report.UniqueTracks), len(report.Groups))
				if len(report.Groups) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(report.Groups))
				for _, group := range report.Groups {
					rows = append(rows, []string{group.Artist, group.Album, group.Title, strconv.Itoa(group.Count)})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Artist", "Album", "Title", "Copies"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				fmt.Fprintln(out, "Run `tracksync organize plan` to see which copies would be removed.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

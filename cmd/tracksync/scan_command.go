package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tracksync/internal/config"
	"tracksync/internal/metadata"
	"tracksync/internal/progress"
	"tracksync/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var force, incremental, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Scan the music library and update the catalog",
		Long: "Scan walks the library and catalogs every supported audio file.\n\n" +
			"A full scan skips files whose modification time is unchanged unless --force is given.\n" +
			"An incremental scan only adds new files and removes cataloged files that no longer exist;\n" +
			"it does not re-read files that are already cataloged.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if force && incremental {
				return fmt.Errorf("--force and --incremental cannot be combined")
			}
			operation := "scan"
			if incremental {
				operation = "scan_incremental"
			}
			return ctx.withLockedSession(cmd, operation, func(s *session) error {
				root := s.cfg.Library.Root
				if len(args) == 1 {
					expanded, err := config.ExpandPath(strings.TrimSpace(args[0]))
					if err != nil {
						return fmt.Errorf("resolve root: %w", err)
					}
					root = expanded
				}

				extractor := metadata.NewExtractor(root, s.logger)
				sc := scanner.New(s.catalog, s.resolver, extractor, scanner.OptionsFromConfig(s.cfg, s.logger))
				var stream *progress.Stream[scanner.Progress, scanner.Result]
				if incremental {
					stream = sc.StartIncremental(s.ctx, root)
				} else {
					stream = sc.StartScan(s.ctx, root, force)
				}

				var bar *progressbar.ProgressBar
				for event := range stream.Events() {
					if bar == nil {
						bar = newProgressBar(cmd.ErrOrStderr(), event.TotalFiles, "Scanning")
						if bar == nil {
							continue
						}
					}
					_ = bar.Set(event.ProcessedFiles)
				}
				if bar != nil {
					_ = bar.Finish()
				}
				result, err := stream.Wait()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				printScanResult(cmd, root, result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-read every file even when unchanged")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "Only add new files and drop deleted ones")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func printScanResult(cmd *cobra.Command, root string, result scanner.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %s in %s\n", root, result.Duration.Round(time.Millisecond))
	rows := [][]string{
		{"Files found", formatCount(result.TotalFiles)},
		{"Processed", formatCount(result.ProcessedFiles)},
		{"Added", formatCount(result.Added)},
		{"Updated", formatCount(result.Updated)},
		{"Unchanged", formatCount(result.Skipped)},
		{"Removed", formatCount(result.Removed)},
		{"Errors", formatCount(len(result.Errors))},
	}
	fmt.Fprintln(out, renderTable([]string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	if len(result.Errors) == 0 {
		return
	}
	fmt.Fprintln(out, colorize(out, ansiYellow, "Problems:"))
	for _, msg := range result.Errors {
		fmt.Fprintf(out, "  - %s\n", msg)
	}
}

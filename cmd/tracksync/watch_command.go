package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracksync/internal/catalog"
	"tracksync/internal/logging"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the shared catalog for changes made by other devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "watch", func(s *session) error {
				watcher, err := catalog.NewWatcher(s.catalog.Path(), debounce, s.logger)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", s.catalog.Path())
				return watcher.Run(s.ctx, func() {
					handleExternalChange(cmd, s)
				})
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", time.Second, "Quiet period before reacting to a burst of writes")
	return cmd
}

func handleExternalChange(cmd *cobra.Command, s *session) {
	out := cmd.OutOrStdout()
	if !s.cfg.Catalog.ReloadOnExternalChange {
		if err := s.catalog.ErrIfStale(); err != nil {
			fmt.Fprintln(out, colorize(out, ansiYellow, "Catalog changed on disk; restart to see the new state"))
		}
		return
	}
	reloaded, err := s.catalog.ReloadIfChanged(s.ctx)
	if err != nil {
		logging.WarnWithContext(s.logger, "catalog reload failed", "catalog_reload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for the sync client to finish, then rerun the command"),
			logging.String(logging.FieldImpact, "showing the previous catalog state"),
		)
		return
	}
	if !reloaded {
		return
	}
	stats, err := s.catalog.Stats(s.ctx)
	if err != nil {
		fmt.Fprintf(out, "%s catalog reloaded\n", time.Now().Format(time.TimeOnly))
		return
	}
	fmt.Fprintf(out, "%s catalog reloaded: %s tracks, %s albums\n",
		time.Now().Format(time.TimeOnly), formatCount(stats.Tracks), formatCount(stats.Albums))
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracksync/internal/catalog"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the shared catalog (if missing) and register this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "init", func(s *session) error {
				if err := s.catalog.SetMetadata(s.ctx, catalog.MetaMusicRootPath, s.cfg.Library.Root); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Catalog:     %s\n", s.catalog.Path())
				fmt.Fprintf(out, "Device:      %s (%s)\n", s.catalog.DeviceName(), s.catalog.DeviceID())
				fmt.Fprintf(out, "Music root:  %s\n", s.cfg.Library.Root)
				fmt.Fprintf(out, "Paths:       %s\n", pathMode(s.cfg.Library.RelativePaths))
				fmt.Fprintln(out, "Run `tracksync scan` to catalog your library.")
				return nil
			})
		},
	}
}

func pathMode(relative bool) string {
	if relative {
		return "relative to music root"
	}
	return "absolute"
}

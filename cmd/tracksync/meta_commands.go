package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"tracksync/internal/services"
)

func newMetaCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Read and write catalog-wide sync metadata",
	}
	cmd.AddCommand(newMetaGetCommand(ctx))
	cmd.AddCommand(newMetaSetCommand(ctx))
	return cmd
}

func newMetaGetCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one metadata value, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "meta_get", func(s *session) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					value, ok, err := s.catalog.GetMetadata(s.ctx, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return services.Wrap(services.ErrNotFound, "cli", "meta get", "no metadata key "+args[0], nil)
					}
					if jsonOutput {
						return writeJSON(cmd, map[string]string{args[0]: value})
					}
					fmt.Fprintln(out, value)
					return nil
				}
				all, err := s.catalog.Metadata(s.ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, all)
				}
				keys := make([]string, 0, len(all))
				for key := range all {
					keys = append(keys, key)
				}
				slices.Sort(keys)
				rows := make([][]string, 0, len(keys))
				for _, key := range keys {
					rows = append(rows, []string{key, all[key]})
				}
				fmt.Fprintln(out, renderTable([]string{"Key", "Value"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func newMetaSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a metadata value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return services.Wrap(services.ErrValidation, "cli", "meta set", "key is required", nil)
			}
			return ctx.withSession(cmd, "meta_set", func(s *session) error {
				if err := s.catalog.SetMetadata(s.ctx, key, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
				return nil
			})
		},
	}
}

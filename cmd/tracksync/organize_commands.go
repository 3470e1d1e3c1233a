package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tracksync/internal/config"
	"tracksync/internal/fileutil"
	"tracksync/internal/organizer"
	"tracksync/internal/services"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Plan and apply duplicate removal and library reorganization",
	}
	cmd.AddCommand(newOrganizePlanCommand(ctx))
	cmd.AddCommand(newOrganizeApplyCommand(ctx))
	return cmd
}

func newOrganizePlanCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var jsonOutput, showKeeps bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute an organize plan without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, "organize_plan", func(s *session) error {
				planner := organizer.NewPlanner(s.catalog, s.resolver, organizer.PlannerOptionsFromConfig(s.cfg, s.logger))
				plan, err := planner.GeneratePlan(s.ctx, s.cfg.Library.Root)
				if err != nil {
					return err
				}
				if strings.TrimSpace(outPath) != "" {
					target, err := config.ExpandPath(outPath)
					if err != nil {
						return fmt.Errorf("resolve plan path: %w", err)
					}
					if err := organizer.SavePlan(target, plan); err != nil {
						return err
					}
					outPath = target
				}
				if jsonOutput {
					return writeJSON(cmd, plan)
				}
				printPlan(cmd.OutOrStdout(), plan, showKeeps)
				if outPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Plan saved to %s\nApply it with `tracksync organize apply %s`.\n", outPath, outPath)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Save the plan as JSON to this file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON")
	cmd.Flags().BoolVar(&showKeeps, "show-keeps", false, "Include KEEP actions in the table")
	return cmd
}

func newOrganizeApplyCommand(ctx *commandContext) *cobra.Command {
	var yes, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "apply [plan-file]",
		Short: "Apply a saved plan, or a freshly generated one with --yes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !yes {
				return errors.New("no plan file given; pass a file from `tracksync organize plan --out` or use --yes to apply a fresh plan")
			}
			return ctx.withLockedSession(cmd, "organize_apply", func(s *session) error {
				var plan *organizer.Plan
				if len(args) == 1 {
					path, err := config.ExpandPath(args[0])
					if err != nil {
						return fmt.Errorf("resolve plan path: %w", err)
					}
					if plan, err = organizer.LoadPlan(path); err != nil {
						return err
					}
				} else {
					planner := organizer.NewPlanner(s.catalog, s.resolver, organizer.PlannerOptionsFromConfig(s.cfg, s.logger))
					var err error
					if plan, err = planner.GeneratePlan(s.ctx, s.cfg.Library.Root); err != nil {
						return err
					}
				}

				if err := fileutil.CheckWritableDir(plan.LibraryRoot); err != nil {
					return services.Wrap(services.ErrConfiguration, "organize", "preflight", "library root is not writable", err)
				}
				executor := organizer.NewExecutor(s.catalog, s.resolver, s.logger)
				stream := executor.Start(s.ctx, plan)
				var bar *progressbar.ProgressBar
				for event := range stream.Events() {
					if bar == nil {
						bar = newProgressBar(cmd.ErrOrStderr(), event.Total, "Organizing")
						if bar == nil {
							continue
						}
					}
					bar.Describe(fmt.Sprintf("%-6s %s", event.Action.Type, filepath.Base(event.Action.SourcePath)))
					_ = bar.Set(event.Current)
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
				out := cmd.OutOrStdout()
				status := colorize(out, ansiGreen, "completed")
				if !result.Success {
					status = colorize(out, ansiRed, "completed with errors")
				}
				fmt.Fprintf(out, "Organize %s: %d moved, %d deleted, %d empty folders removed\n",
					status, result.Moved, result.Deleted, result.RemovedDirs)
				for _, msg := range result.Errors {
					fmt.Fprintf(out, "  - %s\n", msg)
				}
				if !result.Success {
					return fmt.Errorf("%d actions failed", len(result.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Generate and apply a plan without saving it first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func printPlan(out io.Writer, plan *organizer.Plan, showKeeps bool) {
	rows := make([][]string, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		if action.Type == organizer.ActionKeep && !showKeeps {
			continue
		}
		rows = append(rows, []string{
			actionLabel(out, action.Type),
			relativeTo(plan.LibraryRoot, action.SourcePath),
			relativeTo(plan.LibraryRoot, action.TargetPath),
			action.Reason,
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Action", "Source", "Target", "Reason"}, rows, nil))
	}
	fmt.Fprintf(out, "Policy: %s\n", plan.Policy)
	fmt.Fprintf(out, "%d to move, %d to delete, %d to keep; %s to recover\n",
		plan.Stats.ToMove, plan.Stats.ToDelete, plan.Stats.ToKeep, formatBytes(plan.Stats.TotalSizeToRecover))
}

func actionLabel(out io.Writer, action organizer.ActionType) string {
	switch action {
	case organizer.ActionDelete:
		return colorize(out, ansiRed, string(action))
	case organizer.ActionMove:
		return colorize(out, ansiBlue, string(action))
	default:
		return string(action)
	}
}

func relativeTo(root, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/taskflow/internal/cli"
	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair an owner's category tree",
	}
	cmd.AddCommand(resetCmd())
	cmd.AddCommand(dedupeCmd())
	cmd.AddCommand(repairCmd())
	return cmd
}

func resetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Merge duplicates, re-seed the catalog and repair tasks",
		Long: `Reset collapses categories and subcategories that differ only in case or
surrounding whitespace, re-applies the system catalog and points every task
at a valid category. Custom categories and tasks are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				if !force {
					ok, err := cli.Confirm(ctx, a.in, a.out, fmt.Sprintf("Reset categories for %s?", a.owner))
					if err != nil {
						return err
					}
					if !ok {
						a.println("Reset canceled.")
						return nil
					}
				}

				report, err := a.engine.ForceReset(ctx, a.owner)
				if err != nil {
					return fmt.Errorf("reset failed: %w", err)
				}
				printDedupReport(a, report.Dedup)
				printSeedReport(a, a.owner, report.Seed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func dedupeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Merge duplicate categories and subcategories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				report, err := a.engine.Deduplicate(ctx, a.owner)
				if err != nil {
					return fmt.Errorf("deduplication failed: %w", err)
				}
				printDedupReport(a, report)
				return nil
			})
		},
	}
}

func repairCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Point tasks with stale links at valid categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				var progress engine.ProgressFunc
				if !quiet {
					progress = cli.NewProgress(cmd.ErrOrStderr(), "Checking tasks...").Update
				}
				report, err := a.engine.RepairLinks(ctx, a.owner, engine.NewRemap(), progress)
				if err != nil {
					return fmt.Errorf("repair failed: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Checked %d task(s)", report.Scanned)))
				printRepairReport(a, report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "hide the progress bar")
	return cmd
}

func printDedupReport(a *app, r *engine.DedupReport) {
	if r == nil {
		return
	}
	if r.CategoriesRemoved+r.SubcategoriesRemoved+r.SubcategoriesMoved == 0 {
		a.println(cli.FormatInfo("No duplicates found"))
	} else {
		a.println(cli.FormatSuccess(fmt.Sprintf(
			"Merged %d duplicate categories and %d duplicate subcategories; moved %d subcategories",
			r.CategoriesRemoved, r.SubcategoriesRemoved, r.SubcategoriesMoved)))
	}
	if r.CategoriesPromoted > 0 || r.SubcategoriesPinned > 0 {
		a.println(cli.FormatInfo(fmt.Sprintf("Protected %d categories and pinned %d subcategories",
			r.CategoriesPromoted, r.SubcategoriesPinned)))
	}
	printRepairReport(a, r.Repair)
}

func printRepairReport(a *app, r *engine.RepairReport) {
	if r == nil {
		return
	}
	if r.Updated > 0 {
		a.println(cli.FormatSuccess(fmt.Sprintf("Repaired %d task link(s)", r.Updated)))
		for _, c := range r.Changes {
			a.println(cli.SubtleStyle.Render(fmt.Sprintf("  %s: %s -> %s %v", c.TaskID, c.FromCategory, c.ToCategory, c.Reasons)))
		}
	}
	if r.Unresolved > 0 {
		a.println(cli.FormatWarning(fmt.Sprintf("%d task(s) could not be repaired: owner has no categories", r.Unresolved)))
	}
}

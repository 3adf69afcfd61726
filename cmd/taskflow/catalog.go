package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/taskflow/internal/cli"
	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and apply the system category catalog",
	}
	cmd.AddCommand(showCatalogCmd())
	cmd.AddCommand(syncCatalogCmd())
	return cmd
}

func showCatalogCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the catalog in effect",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asYAML {
				data, err := cat.Marshal()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			rows := make([][]string, 0, cat.Len())
			for _, e := range cat.Entries() {
				rows = append(rows, []string{e.Name, e.Icon, strings.Join(e.Subcategories, ", ")})
			}
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Catalog %s (fallback %q)", cat.Version(), cat.Fallback())))
			fmt.Fprint(out, cli.RenderTable([]string{"CATEGORY", "ICON", "SUBCATEGORIES"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML, suitable for catalog.path")
	return cmd
}

func syncCatalogCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Apply the catalog to an owner",
		Long: `Create missing system categories and subcategories, update drifted
metadata and repair task links. Existing data is never removed.
With --all every owner in the database is synced.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, !all, func(ctx context.Context, a *app) error {
				owners := []string{a.owner}
				if all {
					var err error
					if owners, err = a.store.ListOwners(ctx); err != nil {
						return fmt.Errorf("failed to list owners: %w", err)
					}
				}
				for _, owner := range owners {
					report, err := a.engine.SyncSystemCatalog(ctx, owner)
					if err != nil {
						return fmt.Errorf("failed to sync %s: %w", owner, err)
					}
					printSeedReport(a, owner, report)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "sync every owner")
	return cmd
}

func printSeedReport(a *app, owner string, r *engine.SeedReport) {
	if !r.Changed() {
		a.println(cli.FormatInfo(fmt.Sprintf("%s is up to date with catalog %s", owner, r.CatalogVersion)))
	} else {
		a.println(cli.FormatSuccess(fmt.Sprintf(
			"%s: %d categories created, %d updated; %d subcategories created, %d updated",
			owner, r.CategoriesCreated, r.CategoriesUpdated, r.SubcategoriesCreated, r.SubcategoriesUpdated)))
	}
	printRepairReport(a, r.Repair)
}

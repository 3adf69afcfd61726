package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Veraticus/taskflow/internal/cli"
	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, add, update, and delete the categories tasks are filed under.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

// findCategory resolves ref as an id, then as a case-insensitive name.
func findCategory(ctx context.Context, a *app, ref string) (model.Category, error) {
	cats, err := a.store.ListCategories(ctx, a.owner)
	if err != nil {
		return model.Category{}, err
	}
	model.SortCategories(cats)
	for _, c := range cats {
		if c.ID == ref {
			return c, nil
		}
	}
	key := model.NormalizeName(ref)
	for _, c := range cats {
		if model.NormalizeName(c.Name) == key {
			return c, nil
		}
	}
	return model.Category{}, common.NewUserError(fmt.Sprintf("category %q not found", ref), common.ErrNotFound)
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Long:  `Display the owner's categories in display order. A new owner is seeded first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				if _, err := a.engine.EnsureSeeded(ctx, a.owner); err != nil {
					return fmt.Errorf("failed to seed categories: %w", err)
				}
				cats, err := a.store.ListCategories(ctx, a.owner)
				if err != nil {
					return fmt.Errorf("failed to get categories: %w", err)
				}
				subs, err := a.store.ListOwnerSubcategories(ctx, a.owner)
				if err != nil {
					return fmt.Errorf("failed to get subcategories: %w", err)
				}
				counts := make(map[string]int, len(cats))
				for _, s := range subs {
					counts[s.CategoryID]++
				}

				model.SortCategories(cats)
				rows := make([][]string, 0, len(cats))
				for _, c := range cats {
					name := c.Name
					if c.Pinned {
						name += " " + cli.PinIcon
					}
					rows = append(rows, []string{
						c.ID,
						name,
						string(c.Kind),
						strconv.Itoa(c.Order),
						strconv.Itoa(counts[c.ID]),
						c.Description,
					})
				}
				a.println(cli.FormatTitle(fmt.Sprintf("Categories for %s", a.owner)))
				a.printf("%s", cli.RenderTable([]string{"ID", "NAME", "KIND", "ORDER", "SUBS", "DESCRIPTION"}, rows))
				return nil
			})
		},
	}
}

type categoryFlags struct {
	icon        string
	color       string
	description string
	order       int
	inactive    bool
}

func (f *categoryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.icon, "icon", "", "icon name")
	cmd.Flags().StringVar(&f.color, "color", "", "hex color")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "description")
	cmd.Flags().IntVar(&f.order, "order", 0, "display order")
	cmd.Flags().BoolVar(&f.inactive, "inactive", false, "mark inactive")
}

func addCategoryCmd() *cobra.Command {
	var flags categoryFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				fields := model.CategoryFields{
					Name:        args[0],
					Kind:        model.CategoryKindCustom,
					Icon:        flags.icon,
					Color:       flags.color,
					Description: flags.description,
					Order:       flags.order,
					Active:      !flags.inactive,
				}
				if !cmd.Flags().Changed("order") {
					cats, err := a.store.ListCategories(ctx, a.owner)
					if err != nil {
						return err
					}
					fields.Order = nextOrder(cats)
				}
				c, err := a.store.CreateCategory(ctx, a.owner, fields)
				if err != nil {
					return fmt.Errorf("failed to create category: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Created category %q (%s)", c.Name, c.ID)))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func nextOrder(cats []model.Category) int {
	next := 0
	for _, c := range cats {
		if c.Order >= next {
			next = c.Order + 1
		}
	}
	return next
}

func updateCategoryCmd() *cobra.Command {
	var (
		flags categoryFlags
		name  string
	)

	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Update a category",
		Long:  `Change a category's name or display fields. The kind of a category cannot be changed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				c, err := findCategory(ctx, a, args[0])
				if err != nil {
					return err
				}

				var patch model.CategoryPatch
				set := cmd.Flags().Changed
				if set("name") {
					patch.Name = &name
				}
				if set("icon") {
					patch.Icon = &flags.icon
				}
				if set("color") {
					patch.Color = &flags.color
				}
				if set("description") {
					patch.Description = &flags.description
				}
				if set("order") {
					patch.Order = &flags.order
				}
				if set("inactive") {
					active := !flags.inactive
					patch.Active = &active
				}
				if patch.IsEmpty() {
					return common.NewUserError("nothing to update", common.ErrInvalidOperation)
				}

				if err := a.store.UpdateCategory(ctx, c.ID, patch); err != nil {
					return fmt.Errorf("failed to update category: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Updated category %q", patch.Apply(c).Name)))
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a custom category",
		Long: `Delete a custom category and its subcategories. System categories, and
categories holding pinned subcategories, are protected. Tasks filed under the
deleted category are moved to the fallback category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				c, err := findCategory(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := a.store.DeleteCategory(ctx, c.ID); err != nil {
					return fmt.Errorf("failed to delete category: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Deleted category %q", c.Name)))
				return repairTaskLinks(ctx, a)
			})
		},
	}
}

func repairTaskLinks(ctx context.Context, a *app) error {
	report, err := a.engine.RepairLinks(ctx, a.owner, engine.NewRemap(), nil)
	if err != nil {
		return fmt.Errorf("failed to repair task links: %w", err)
	}
	if report.Updated > 0 {
		a.println(cli.FormatInfo(fmt.Sprintf("Moved %d task(s) to valid categories", report.Updated)))
	}
	return nil
}

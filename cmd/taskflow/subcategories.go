package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Veraticus/taskflow/internal/cli"
	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/spf13/cobra"
)

func subcategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subcategories",
		Aliases: []string{"subs"},
		Short:   "Manage subcategories",
	}

	cmd.AddCommand(listSubcategoriesCmd())
	cmd.AddCommand(addSubcategoryCmd())
	cmd.AddCommand(updateSubcategoryCmd())
	cmd.AddCommand(deleteSubcategoryCmd())

	return cmd
}

// findSubcategory resolves ref as an id, then as a name under parent.
func findSubcategory(ctx context.Context, a *app, parent model.Category, ref string) (model.Subcategory, error) {
	subs, err := a.store.ListSubcategories(ctx, parent.ID)
	if err != nil {
		return model.Subcategory{}, err
	}
	model.SortSubcategories(subs)
	for _, s := range subs {
		if s.ID == ref {
			return s, nil
		}
	}
	key := model.NormalizeName(ref)
	for _, s := range subs {
		if model.NormalizeName(s.Name) == key {
			return s, nil
		}
	}
	return model.Subcategory{}, common.NewUserError(
		fmt.Sprintf("subcategory %q not found under %q", ref, parent.Name), common.ErrNotFound)
}

func listSubcategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <category>",
		Short: "List subcategories of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				parent, err := findCategory(ctx, a, args[0])
				if err != nil {
					return err
				}
				subs, err := a.store.ListSubcategories(ctx, parent.ID)
				if err != nil {
					return fmt.Errorf("failed to get subcategories: %w", err)
				}
				if len(subs) == 0 {
					a.println(cli.InfoStyle.Render(fmt.Sprintf("%q has no subcategories.", parent.Name)))
					return nil
				}
				model.SortSubcategories(subs)
				rows := make([][]string, 0, len(subs))
				for _, s := range subs {
					pinned := ""
					if s.Pinned {
						pinned = cli.PinIcon
					}
					rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.Order), pinned})
				}
				a.println(cli.FormatTitle(parent.Name))
				a.printf("%s", cli.RenderTable([]string{"ID", "NAME", "ORDER", "PINNED"}, rows))
				return nil
			})
		},
	}
}

func addSubcategoryCmd() *cobra.Command {
	var flags categoryFlags

	cmd := &cobra.Command{
		Use:   "add <category> <name>",
		Short: "Add a subcategory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				parent, err := findCategory(ctx, a, args[0])
				if err != nil {
					return err
				}
				fields := model.SubcategoryFields{
					Name:        args[1],
					Icon:        flags.icon,
					Color:       flags.color,
					Description: flags.description,
					Order:       flags.order,
					Active:      !flags.inactive,
				}
				if !cmd.Flags().Changed("order") {
					subs, err := a.store.ListSubcategories(ctx, parent.ID)
					if err != nil {
						return err
					}
					fields.Order = len(subs)
				}
				sub, err := a.store.CreateSubcategory(ctx, a.owner, parent.ID, fields)
				if err != nil {
					return fmt.Errorf("failed to create subcategory: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Created %s / %s (%s)", parent.Name, sub.Name, sub.ID)))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func updateSubcategoryCmd() *cobra.Command {
	var (
		flags  categoryFlags
		name   string
		moveTo string
	)

	cmd := &cobra.Command{
		Use:   "update <category> <id|name>",
		Short: "Update or move a subcategory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				parent, err := findCategory(ctx, a, args[0])
				if err != nil {
					return err
				}
				sub, err := findSubcategory(ctx, a, parent, args[1])
				if err != nil {
					return err
				}

				var patch model.SubcategoryPatch
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
				if set("move-to") {
					target, err := findCategory(ctx, a, moveTo)
					if err != nil {
						return err
					}
					patch.CategoryID = &target.ID
				}
				if patch.IsEmpty() {
					return common.NewUserError("nothing to update", common.ErrInvalidOperation)
				}

				if err := a.store.UpdateSubcategory(ctx, sub.ID, patch); err != nil {
					return fmt.Errorf("failed to update subcategory: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Updated subcategory %q", patch.Apply(sub).Name)))
				if patch.CategoryID != nil {
					// Tasks still filed under the old parent now mismatch.
					return repairTaskLinks(ctx, a)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&moveTo, "move-to", "", "move under another category")
	return cmd
}

func deleteSubcategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category> <id|name>",
		Short: "Delete a subcategory",
		Long:  `Delete an unpinned subcategory. Tasks that referenced it keep their category.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				parent, err := findCategory(ctx, a, args[0])
				if err != nil {
					return err
				}
				sub, err := findSubcategory(ctx, a, parent, args[1])
				if err != nil {
					return err
				}
				if err := a.store.DeleteSubcategory(ctx, sub.ID); err != nil {
					return fmt.Errorf("failed to delete subcategory: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Deleted %s / %s", parent.Name, sub.Name)))
				return repairTaskLinks(ctx, a)
			})
		},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/taskflow/internal/cli"
	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/intake"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/taskview"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks",
	}

	cmd.AddCommand(listTasksCmd())
	cmd.AddCommand(addTaskCmd())
	cmd.AddCommand(intakeCmd())
	cmd.AddCommand(summaryCmd())
	cmd.AddCommand(shareTaskCmd())
	cmd.AddCommand(unshareTaskCmd())
	cmd.AddCommand(deleteTaskCmd())

	return cmd
}

type filterFlags struct {
	status    string
	priority  string
	category  string
	flow      string
	search    string
	dueAfter  string
	dueBefore string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "pending, in_progress or done")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category id or name")
	cmd.Flags().StringVar(&f.flow, "flow", "", "inflow or outflow")
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "text in title or description")
	cmd.Flags().StringVar(&f.dueAfter, "due-after", "", "YYYY-MM-DD")
	cmd.Flags().StringVar(&f.dueBefore, "due-before", "", "YYYY-MM-DD")
}

func (f *filterFlags) build(ctx context.Context, a *app) (taskview.Filter, error) {
	filter := taskview.Filter{
		Status:   model.TaskStatus(f.status),
		Priority: model.Priority(f.priority),
		Flow:     model.FlowDirection(f.flow),
		Search:   f.search,
	}
	if f.category != "" {
		c, err := findCategory(ctx, a, f.category)
		if err != nil {
			return filter, err
		}
		filter.CategoryID = c.ID
	}
	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{f.dueAfter, &filter.DueAfter}, {f.dueBefore, &filter.DueBefore}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, d.raw)
		if err != nil {
			return filter, common.NewUserError(fmt.Sprintf("invalid date %q (YYYY-MM-DD)", d.raw), err)
		}
		*d.dst = &t
	}
	return filter, nil
}

// categoryNames maps category ids to display names.
func categoryNames(ctx context.Context, a *app) (map[string]string, error) {
	cats, err := a.store.ListCategories(ctx, a.owner)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func listTasksCmd() *cobra.Command {
	var (
		filter filterFlags
		sortBy string
		desc   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				f, err := filter.build(ctx, a)
				if err != nil {
					return err
				}
				tasks, err := a.store.ListTasks(ctx, a.owner)
				if err != nil {
					return fmt.Errorf("failed to get tasks: %w", err)
				}
				tasks = f.Apply(tasks)
				if len(tasks) == 0 {
					a.println(cli.InfoStyle.Render("No tasks found."))
					return nil
				}
				taskview.Sort(tasks, taskview.ParseSortField(sortBy), desc)

				names, err := categoryNames(ctx, a)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					rows = append(rows, taskRow(t, names))
				}
				a.printf("%s", cli.RenderTable([]string{"ID", "TITLE", "CATEGORY", "DUE", "PRIORITY", "STATUS", "VALUE"}, rows))
				return nil
			})
		},
	}
	filter.register(cmd)
	cmd.Flags().StringVar(&sortBy, "sort", "due", "due, priority, created, value or title")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func taskRow(t model.Task, names map[string]string) []string {
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.Format(time.DateOnly)
	}
	value := ""
	if t.Type == model.TypeFinancial {
		value = t.SignedValue().StringFixed(2)
	}
	category, ok := names[t.CategoryID]
	if !ok {
		category = cli.WarningStyle.Render("(missing)")
	}
	return []string{t.ID, t.Title, category, due, string(t.Priority), string(t.Status), value}
}

func addTaskCmd() *cobra.Command {
	var (
		draft intake.Draft
		value string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task. Category and subcategory are given by name and matched the
same way intake matches them; an unknown category falls back to the
default one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.Title = args[0]
			if value != "" {
				v, err := decimal.NewFromString(value)
				if err != nil {
					return common.NewUserError(fmt.Sprintf("invalid value %q", value), err)
				}
				draft.Value = decimal.NewNullDecimal(v)
			}
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				results, err := importDrafts(ctx, a, []intake.Draft{draft})
				if err != nil {
					return err
				}
				reportImport(a, results)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&draft.Category, "category", "c", "", "category name")
	cmd.Flags().StringVarP(&draft.Subcategory, "subcategory", "s", "", "subcategory name")
	cmd.Flags().StringVarP(&draft.Description, "description", "d", "", "description")
	cmd.Flags().StringVar(&draft.DueDate, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVarP(&draft.Priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVar(&draft.Flow, "flow", "", "inflow or outflow (financial tasks)")
	cmd.Flags().StringVar(&draft.Recurrence, "recurrence", "", "weekly, monthly or yearly")
	cmd.Flags().StringVar(&value, "value", "", "amount; makes the task financial")
	return cmd
}

func importDrafts(ctx context.Context, a *app, drafts []intake.Draft) ([]intake.Result, error) {
	if _, err := a.engine.EnsureSeeded(ctx, a.owner); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}
	importer := intake.NewImporter(a.store, newResolver(a.engine, cfg))
	results, err := importer.Import(ctx, a.owner, drafts)
	if err != nil {
		reportImport(a, results)
		return nil, fmt.Errorf("failed to import tasks: %w", err)
	}
	return results, nil
}

func reportImport(a *app, results []intake.Result) {
	for _, r := range results {
		line := fmt.Sprintf("Added %q (%s) under %s", r.Task.Title, r.Task.ID, r.Resolution.CategoryName)
		if r.Resolution.SubcategoryName != "" {
			line += " / " + r.Resolution.SubcategoryName
		}
		a.println(cli.FormatSuccess(line))
		if r.Resolution.CategoryFellBack {
			a.println(cli.FormatWarning("  category not recognized, used the fallback"))
		}
		if r.Resolution.SubcategoryRejected {
			a.println(cli.FormatWarning("  subcategory not recognized, left empty"))
		}
	}
}

func intakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intake [file]",
		Short: "Import task drafts from JSON",
		Long: `Read task drafts as JSON, such as the output of an assistant, and store them.
Accepts an array, an object with a "tasks" array, or a single object. The
input may be wrapped in a markdown code fence. Reads stdin when no file is
given or the file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read drafts: %w", err)
			}
			drafts, err := intake.ParseDrafts(raw)
			if err != nil {
				return common.NewUserError("could not parse task drafts", err)
			}
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				results, err := importDrafts(ctx, a, drafts)
				if err != nil {
					return err
				}
				reportImport(a, results)
				return nil
			})
		},
	}
}

func summaryCmd() *cobra.Command {
	var filter filterFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize tasks and financial totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				f, err := filter.build(ctx, a)
				if err != nil {
					return err
				}
				tasks, err := a.store.ListTasks(ctx, a.owner)
				if err != nil {
					return fmt.Errorf("failed to get tasks: %w", err)
				}
				names, err := categoryNames(ctx, a)
				if err != nil {
					return err
				}
				sum := taskview.Summarize(f.Apply(tasks), time.Now())

				var b strings.Builder
				fmt.Fprintf(&b, "Tasks:    %d (%d overdue)\n", sum.Total, sum.Overdue)
				for _, status := range []model.TaskStatus{model.StatusPending, model.StatusInProgress, model.StatusDone} {
					fmt.Fprintf(&b, "  %-12s %d\n", status, sum.ByStatus[status])
				}
				fmt.Fprintf(&b, "Inflow:   %s\n", sum.Inflow.StringFixed(2))
				fmt.Fprintf(&b, "Outflow:  %s\n", sum.Outflow.StringFixed(2))
				fmt.Fprintf(&b, "Net:      %s", sum.Net.StringFixed(2))

				ids := make([]string, 0, len(sum.ByCategory))
				for id := range sum.ByCategory {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool { return names[ids[i]] < names[ids[j]] })
				for _, id := range ids {
					name := names[id]
					if name == "" {
						name = id
					}
					fmt.Fprintf(&b, "\n  %-20s %s", name, sum.ByCategory[id].StringFixed(2))
				}

				a.println(cli.RenderBox("Summary", b.String()))
				return nil
			})
		},
	}
	filter.register(cmd)
	return cmd
}

func ownedTask(ctx context.Context, a *app, id string) (*model.Task, error) {
	t, err := a.store.GetTask(ctx, id)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("task %q not found", id), err)
	}
	if t.Owner != a.owner {
		return nil, common.NewUserError(fmt.Sprintf("task %q not found", id), common.ErrNotFound)
	}
	return t, nil
}

func shareTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <id>",
		Short: "Create a public link token for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				t, err := ownedTask(ctx, a, args[0])
				if err != nil {
					return err
				}
				token := t.ShareToken
				if token == "" {
					token = uuid.NewString()
					if err := a.store.SetTaskShareToken(ctx, t.ID, token); err != nil {
						return fmt.Errorf("failed to share task: %w", err)
					}
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Shared %q: /public/tasks/%s", t.Title, token)))
				return nil
			})
		},
	}
}

func unshareTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unshare <id>",
		Short: "Revoke a task's public link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				t, err := ownedTask(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := a.store.SetTaskShareToken(ctx, t.ID, ""); err != nil {
					return fmt.Errorf("failed to unshare task: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Stopped sharing %q", t.Title)))
				return nil
			})
		},
	}
}

func deleteTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				t, err := ownedTask(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := a.store.DeleteTask(ctx, t.ID); err != nil {
					return fmt.Errorf("failed to delete task: %w", err)
				}
				a.println(cli.FormatSuccess(fmt.Sprintf("Deleted %q", t.Title)))
				return nil
			})
		},
	}
}

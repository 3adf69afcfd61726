package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taskflow/internal/model"
)

func (e *Engine) repair(ctx context.Context, owner string, remap Remap, progress ProgressFunc) (*RepairReport, error) {
	report := &RepairReport{}

	cats, err := e.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	subs, err := e.store.ListOwnerSubcategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load subcategories: %w", err)
	}
	tasks, err := e.store.ListTasks(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	categories := make(map[string]bool, len(cats))
	for _, c := range cats {
		categories[c.ID] = true
	}
	subcategories := make(map[string]model.Subcategory, len(subs))
	for _, s := range subs {
		subcategories[s.ID] = s
	}
	fallbackID := e.fallbackCategory(cats)

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		change, ok := planRepair(task, remap, categories, subcategories, fallbackID)
		if !ok {
			if !categories[task.CategoryID] {
				report.Unresolved++
			}
			if progress != nil {
				progress(i+1, len(tasks))
			}
			continue
		}
		if !categories[change.ToCategory] {
			report.Unresolved++
		}

		if err := e.store.UpdateTaskLinks(ctx, task.ID, change.ToCategory, change.ToSubcategory); err != nil {
			return report, fmt.Errorf("failed to repair task %s: %w", task.ID, err)
		}
		report.Updated++
		report.Changes = append(report.Changes, change)
		slog.Debug("Repaired task links",
			"owner", owner,
			"task_id", task.ID,
			"category_id", change.ToCategory,
			"subcategory_id", change.ToSubcategory,
			"reasons", change.Reasons)

		if progress != nil {
			progress(i+1, len(tasks))
		}
	}

	if report.Updated > 0 || report.Unresolved > 0 {
		slog.Info("Repaired task links",
			"owner", owner,
			"scanned", report.Scanned,
			"updated", report.Updated,
			"unresolved", report.Unresolved)
	}
	return report, nil
}

// planRepair decides the new links for one task. ok is false when nothing changes.
func planRepair(task model.Task, remap Remap, categories map[string]bool, subcategories map[string]model.Subcategory, fallbackID string) (LinkChange, bool) {
	change := LinkChange{
		TaskID:          task.ID,
		FromCategory:    task.CategoryID,
		FromSubcategory: task.SubcategoryID,
	}

	catID, remapped := remap.Category(task.CategoryID)
	subID := task.SubcategoryID
	if subID != "" {
		var subRemapped bool
		subID, subRemapped = remap.Subcategory(subID)
		remapped = remapped || subRemapped
	}
	if remapped {
		change.Reasons = append(change.Reasons, ReasonRemapped)
	}

	sub, subResolves := subcategories[subID]
	if subID == "" {
		subResolves = false
	}

	if !categories[catID] {
		switch {
		case subResolves && categories[sub.CategoryID]:
			catID = sub.CategoryID
			change.Reasons = append(change.Reasons, ReasonAdoptedParent)
		case fallbackID != "":
			catID = fallbackID
			change.Reasons = append(change.Reasons, ReasonFallback)
		}
	}

	switch {
	case subID == "":
	case !subResolves:
		subID = ""
		change.Reasons = append(change.Reasons, ReasonDanglingSubcategory)
	case sub.CategoryID != catID:
		subID = ""
		change.Reasons = append(change.Reasons, ReasonParentMismatch)
	}

	change.ToCategory = catID
	change.ToSubcategory = subID
	if catID == task.CategoryID && subID == task.SubcategoryID {
		return LinkChange{}, false
	}
	return change, true
}

// fallbackCategory picks the configured fallback by name, else the first category.
func (e *Engine) fallbackCategory(cats []model.Category) string {
	if len(cats) == 0 {
		return ""
	}
	sorted := append([]model.Category(nil), cats...)
	model.SortCategories(sorted)
	if e.fallback != "" {
		key := model.NormalizeName(e.fallback)
		for _, c := range sorted {
			if model.NormalizeName(c.Name) == key {
				return c.ID
			}
		}
	}
	return sorted[0].ID
}

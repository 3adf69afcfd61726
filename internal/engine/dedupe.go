package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taskflow/internal/model"
)

type subKey struct {
	parent string
	name   string
}

func (e *Engine) deduplicate(ctx context.Context, owner string) (*DedupReport, error) {
	report := &DedupReport{Remap: NewRemap()}

	cats, err := e.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	subs, err := e.store.ListOwnerSubcategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load subcategories: %w", err)
	}

	var (
		catPatches = make(map[string]model.CategoryPatch)
		subPatches = make(map[string]model.SubcategoryPatch)
		catDeletes []string
		subDeletes []string
	)

	// Lists are sorted by order, creation time and id, so the first member
	// of each group is the survivor.
	model.SortCategories(cats)
	for _, group := range groupCategories(cats) {
		if len(group) < 2 {
			continue
		}
		survivor := group[0]
		system, pinned := false, false
		for _, c := range group {
			system = system || c.Kind == model.CategoryKindSystem
			pinned = pinned || c.Pinned
		}
		var patch model.CategoryPatch
		if system && survivor.Kind != model.CategoryKindSystem {
			kind := model.CategoryKindSystem
			patch.Kind = &kind
		}
		if pinned && !survivor.Pinned {
			patch.Pinned = &pinned
		}
		if !patch.IsEmpty() {
			catPatches[survivor.ID] = patch
			report.CategoriesPromoted++
		}
		for _, dup := range group[1:] {
			report.Remap.Categories[dup.ID] = survivor.ID
			catDeletes = append(catDeletes, dup.ID)
		}
	}

	// Subcategories of removed categories move to the survivor before grouping.
	model.SortSubcategories(subs)
	for i := range subs {
		if to, moved := report.Remap.Category(subs[i].CategoryID); moved {
			subs[i].CategoryID = to
			subPatches[subs[i].ID] = model.SubcategoryPatch{CategoryID: &to}
		}
	}

	for _, group := range groupSubcategories(subs) {
		if len(group) < 2 {
			continue
		}
		survivor := group[0]
		pinned := false
		for _, s := range group {
			pinned = pinned || s.Pinned
		}
		if pinned && !survivor.Pinned {
			patch := subPatches[survivor.ID]
			patch.Pinned = &pinned
			subPatches[survivor.ID] = patch
			report.SubcategoriesPinned++
		}
		for _, dup := range group[1:] {
			report.Remap.Subcategories[dup.ID] = survivor.ID
			subDeletes = append(subDeletes, dup.ID)
			delete(subPatches, dup.ID)
		}
	}

	for _, patch := range subPatches {
		if patch.CategoryID != nil {
			report.SubcategoriesMoved++
		}
	}

	// Updates go out before deletes so a failure never strands subcategories
	// under a removed parent.
	writer := newChunkedBatch(e.store, e.maxBatch)
	for _, c := range cats {
		patch, ok := catPatches[c.ID]
		if !ok {
			continue
		}
		b, err := writer.next(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to commit deduplication: %w", err)
		}
		b.UpdateCategory(c.ID, patch)
	}
	for _, s := range subs {
		patch, ok := subPatches[s.ID]
		if !ok {
			continue
		}
		b, err := writer.next(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to commit deduplication: %w", err)
		}
		b.UpdateSubcategory(s.ID, patch)
	}
	for _, id := range subDeletes {
		b, err := writer.next(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to commit deduplication: %w", err)
		}
		b.DeleteSubcategory(id)
		report.SubcategoriesRemoved++
	}
	for _, id := range catDeletes {
		b, err := writer.next(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to commit deduplication: %w", err)
		}
		b.DeleteCategory(id)
		report.CategoriesRemoved++
	}
	if err := writer.flush(ctx); err != nil {
		return report, fmt.Errorf("failed to commit deduplication: %w", err)
	}

	slog.Info("Deduplicated categories",
		"owner", owner,
		"categories_removed", report.CategoriesRemoved,
		"subcategories_removed", report.SubcategoriesRemoved,
		"subcategories_moved", report.SubcategoriesMoved,
		"batches", writer.commits)

	repair, err := e.repair(ctx, owner, report.Remap, nil)
	report.Repair = repair
	if err != nil {
		return report, err
	}
	return report, nil
}

// groupCategories groups sorted categories by normalized name, keeping order.
func groupCategories(cats []model.Category) [][]model.Category {
	index := make(map[string]int)
	var groups [][]model.Category
	for _, c := range cats {
		key := model.NormalizeName(c.Name)
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, []model.Category{c})
			continue
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// groupSubcategories groups sorted subcategories by parent and normalized name.
func groupSubcategories(subs []model.Subcategory) [][]model.Subcategory {
	index := make(map[subKey]int)
	var groups [][]model.Subcategory
	for _, s := range subs {
		key := subKey{parent: s.CategoryID, name: model.NormalizeName(s.Name)}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, []model.Subcategory{s})
			continue
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
)

func (e *Engine) seed(ctx context.Context, owner string) (*SeedReport, error) {
	report := &SeedReport{CatalogVersion: e.catalog.Version()}
	entries := e.catalog.Entries()

	// Pure read: seeding must never be triggered from here.
	cats, err := e.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	byName := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		key := model.NormalizeName(c.Name)
		if prev, seen := byName[key]; !seen || preferCategory(c, prev) {
			byName[key] = c
		}
	}

	writer := newChunkedBatch(e.store, e.maxBatch)
	categoryIDs := make([]string, len(entries))

	for i, entry := range entries {
		existing, ok := byName[model.NormalizeName(entry.Name)]
		if !ok {
			b, err := writer.next(ctx)
			if err != nil {
				return report, fmt.Errorf("failed to commit categories: %w", err)
			}
			categoryIDs[i] = b.CreateCategory(owner, model.CategoryFields{
				Name:        entry.Name,
				Kind:        model.CategoryKindSystem,
				Icon:        entry.Icon,
				Color:       entry.Color,
				Description: entry.Description,
				Order:       i,
				Pinned:      true,
				Active:      true,
			})
			report.CategoriesCreated++
			continue
		}

		categoryIDs[i] = existing.ID
		patch := categoryDrift(existing, entry.Icon, entry.Color, entry.Description, i)
		if patch.IsEmpty() {
			continue
		}
		b, err := writer.next(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to commit categories: %w", err)
		}
		b.UpdateCategory(existing.ID, patch)
		report.CategoriesUpdated++
	}

	if err := writer.flush(ctx); err != nil {
		return report, fmt.Errorf("failed to commit categories: %w", err)
	}

	subs, err := e.store.ListOwnerSubcategories(ctx, owner)
	if err != nil {
		return report, fmt.Errorf("failed to load subcategories: %w", err)
	}
	subsByParent := make(map[string]map[string]model.Subcategory)
	for _, s := range subs {
		names, ok := subsByParent[s.CategoryID]
		if !ok {
			names = make(map[string]model.Subcategory)
			subsByParent[s.CategoryID] = names
		}
		key := model.NormalizeName(s.Name)
		if prev, seen := names[key]; !seen || preferSubcategory(s, prev) {
			names[key] = s
		}
	}

	for i, entry := range entries {
		parentID := categoryIDs[i]
		for j, name := range entry.Subcategories {
			existing, ok := subsByParent[parentID][model.NormalizeName(name)]
			switch {
			case !ok:
				b, err := writer.next(ctx)
				if err != nil {
					return report, fmt.Errorf("failed to commit subcategories: %w", err)
				}
				b.CreateSubcategory(owner, parentID, model.SubcategoryFields{
					Name:   name,
					Order:  j,
					Pinned: true,
					Active: true,
				})
				report.SubcategoriesCreated++
			case !existing.Pinned:
				b, err := writer.next(ctx)
				if err != nil {
					return report, fmt.Errorf("failed to commit subcategories: %w", err)
				}
				pinned := true
				b.UpdateSubcategory(existing.ID, model.SubcategoryPatch{Pinned: &pinned})
				report.SubcategoriesUpdated++
			}
		}
	}

	if err := writer.flush(ctx); err != nil {
		return report, fmt.Errorf("failed to commit subcategories: %w", err)
	}

	if err := e.recordSync(ctx, owner, report); err != nil {
		return report, err
	}

	slog.Info("Seeded system catalog",
		"owner", owner,
		"catalog_version", report.CatalogVersion,
		"categories_created", report.CategoriesCreated,
		"categories_updated", report.CategoriesUpdated,
		"subcategories_created", report.SubcategoriesCreated,
		"subcategories_updated", report.SubcategoriesUpdated)

	// Seeding may have changed which category ids are canonical.
	repair, err := e.repair(ctx, owner, Remap{}, nil)
	report.Repair = repair
	if err != nil {
		return report, err
	}
	return report, nil
}

// preferCategory reports whether a should be matched to a catalog entry
// instead of its same-name duplicate b. Only fields that seeding never writes
// decide, so repeated runs keep matching the same record.
func preferCategory(a, b model.Category) bool {
	if a.IsProtected() != b.IsProtected() {
		return a.IsProtected()
	}
	return createdFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func preferSubcategory(a, b model.Subcategory) bool {
	if a.Pinned != b.Pinned {
		return a.Pinned
	}
	return createdFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func createdFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID < bID
}

// categoryDrift returns the patch that brings c in line with its catalog entry.
// Active is left alone: hiding a system category is the owner's choice.
func categoryDrift(c model.Category, icon, color, description string, order int) model.CategoryPatch {
	var patch model.CategoryPatch
	if c.Kind != model.CategoryKindSystem {
		kind := model.CategoryKindSystem
		patch.Kind = &kind
	}
	if !c.Pinned {
		pinned := true
		patch.Pinned = &pinned
	}
	if c.Order != order {
		patch.Order = &order
	}
	if c.Icon != icon {
		patch.Icon = &icon
	}
	if c.Color != color {
		patch.Color = &color
	}
	if c.Description != description {
		patch.Description = &description
	}
	return patch
}

// recordSync appends an audit entry when the run changed something or the
// owner has not yet been synced to this catalog version.
func (e *Engine) recordSync(ctx context.Context, owner string, report *SeedReport) error {
	if !report.Changed() {
		last, err := e.store.LastCatalogSync(ctx, owner)
		switch {
		case err == nil && last.CatalogVersion == report.CatalogVersion:
			return nil
		case err != nil && !errors.Is(err, common.ErrNotFound):
			return fmt.Errorf("failed to read catalog sync: %w", err)
		}
	}

	err := e.store.RecordCatalogSync(ctx, model.CatalogSync{
		Owner:                owner,
		CatalogVersion:       report.CatalogVersion,
		CategoriesCreated:    report.CategoriesCreated,
		CategoriesUpdated:    report.CategoriesUpdated,
		SubcategoriesCreated: report.SubcategoriesCreated,
		SubcategoriesUpdated: report.SubcategoriesUpdated,
	})
	if err != nil {
		return fmt.Errorf("failed to record catalog sync: %w", err)
	}
	return nil
}

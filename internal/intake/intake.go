package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taskflow/internal/model"
)

// Store is what intake needs from storage.
type Store interface {
	ListCategories(ctx context.Context, owner string) ([]model.Category, error)
	ListOwnerSubcategories(ctx context.Context, owner string) ([]model.Subcategory, error)
	CreateTask(ctx context.Context, task *model.Task) error
}

// Result pairs a stored task with how its names were resolved.
type Result struct {
	Task       model.Task
	Resolution Resolution
}

// Importer resolves drafts and stores them as tasks.
type Importer struct {
	store    Store
	resolver *Resolver
}

// NewImporter creates an importer.
func NewImporter(store Store, resolver *Resolver) *Importer {
	return &Importer{store: store, resolver: resolver}
}

// Import resolves and stores every draft for owner. Drafts are resolved
// against one snapshot of the owner's tree; it stops at the first failure
// and returns the tasks stored so far.
func (im *Importer) Import(ctx context.Context, owner string, drafts []Draft) ([]Result, error) {
	cats, err := im.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	subs, err := im.store.ListOwnerSubcategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load subcategories: %w", err)
	}

	results := make([]Result, 0, len(drafts))
	for _, draft := range drafts {
		task, res, err := im.resolver.Resolve(owner, draft, cats, subs)
		if err != nil {
			return results, err
		}
		if err := im.store.CreateTask(ctx, &task); err != nil {
			return results, fmt.Errorf("failed to store %q: %w", draft.Title, err)
		}
		if res.CategoryFellBack || res.SubcategoryRejected {
			slog.Debug("Draft names did not fully resolve",
				"owner", owner,
				"title", task.Title,
				"category", draft.Category,
				"subcategory", draft.Subcategory,
				"category_id", task.CategoryID)
		}
		results = append(results, Result{Task: task, Resolution: res})
	}

	slog.Info("Imported task drafts", "owner", owner, "count", len(results))
	return results, nil
}

package engine

import (
	"context"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/service"
)

// Store is the subset of service.Storage the reconciliation engine needs.
type Store interface {
	ListCategories(ctx context.Context, owner string) ([]model.Category, error)
	ListOwnerSubcategories(ctx context.Context, owner string) ([]model.Subcategory, error)
	ListTasks(ctx context.Context, owner string) ([]model.Task, error)
	UpdateTaskLinks(ctx context.Context, id, categoryID, subcategoryID string) error
	RecordCatalogSync(ctx context.Context, run model.CatalogSync) error
	LastCatalogSync(ctx context.Context, owner string) (*model.CatalogSync, error)
	NewBatch() service.Batch
}

// ProgressFunc is called after each task link repair decision.
type ProgressFunc func(done, total int)

// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/taskflow/internal/model"
)

// CategoryStore is the accessor for category records.
type CategoryStore interface {
	ListCategories(ctx context.Context, owner string) ([]model.Category, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	CreateCategory(ctx context.Context, owner string, fields model.CategoryFields) (*model.Category, error)
	// UpdateCategory fails with common.ErrInvalidOperation when the patch changes Kind.
	UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) error
	// DeleteCategory fails with common.ErrProtectedRecord for system categories.
	DeleteCategory(ctx context.Context, id string) error
}

// SubcategoryStore is the accessor for subcategory records.
type SubcategoryStore interface {
	ListSubcategories(ctx context.Context, categoryID string) ([]model.Subcategory, error)
	ListOwnerSubcategories(ctx context.Context, owner string) ([]model.Subcategory, error)
	GetSubcategory(ctx context.Context, id string) (*model.Subcategory, error)
	CreateSubcategory(ctx context.Context, owner, categoryID string, fields model.SubcategoryFields) (*model.Subcategory, error)
	UpdateSubcategory(ctx context.Context, id string, patch model.SubcategoryPatch) error
	// DeleteSubcategory fails with common.ErrProtectedRecord for pinned subcategories.
	DeleteSubcategory(ctx context.Context, id string) error
}

// TaskStore is the accessor for task records.
type TaskStore interface {
	ListTasks(ctx context.Context, owner string) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, task *model.Task) error
	UpdateTask(ctx context.Context, task *model.Task) error
	// UpdateTaskLinks rewrites only the category references of a task.
	UpdateTaskLinks(ctx context.Context, id, categoryID, subcategoryID string) error
	DeleteTask(ctx context.Context, id string) error
	SetTaskShareToken(ctx context.Context, id, token string) error
	GetTaskByShareToken(ctx context.Context, token string) (*model.Task, error)
}

// CatalogSyncStore keeps the audit trail of catalog versions applied per owner.
type CatalogSyncStore interface {
	RecordCatalogSync(ctx context.Context, run model.CatalogSync) error
	LastCatalogSync(ctx context.Context, owner string) (*model.CatalogSync, error)
}

// Batch queues category and subcategory writes and applies them atomically.
// It is the reconciliation write path: unlike the accessors it may change a
// category's kind and may delete protected duplicates.
type Batch interface {
	// CreateCategory queues a create and returns the id the record will have.
	CreateCategory(owner string, fields model.CategoryFields) string
	UpdateCategory(id string, patch model.CategoryPatch)
	DeleteCategory(id string)
	CreateSubcategory(owner, categoryID string, fields model.SubcategoryFields) string
	UpdateSubcategory(id string, patch model.SubcategoryPatch)
	DeleteSubcategory(id string)
	// Len returns the number of queued writes.
	Len() int
	Commit(ctx context.Context) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	CategoryStore
	SubcategoryStore
	TaskStore
	CatalogSyncStore

	// ListOwners returns every owner that has categories or tasks.
	ListOwners(ctx context.Context) ([]string, error)
	NewBatch() Batch

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

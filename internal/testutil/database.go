// Package testutil provides shared helpers for tests that need a real store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/storage"
	"github.com/Veraticus/taskflow/internal/testutil/categories"
)

// TestDB wraps a migrated store.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	tree := db.Build("alice", func(b categories.Builder) categories.Builder {
//		return b.WithCategory("Biking").WithCategory("biking")
//	})
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return OpenTestDB(t, ":memory:")
}

// OpenTestDB opens and migrates a store at path, for tests that share a
// database file with code that opens its own connection.
func OpenTestDB(t *testing.T, path string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// Build seeds an owner's category tree using a category builder.
func (db *TestDB) Build(owner string, configure func(categories.Builder) categories.Builder) categories.Tree {
	db.t.Helper()
	b := categories.NewBuilder(db.t)
	if configure != nil {
		b = configure(b)
	}
	return b.MustBuild(context.Background(), db.Storage, owner)
}

// MustCreateTask stores a task with the given links.
func (db *TestDB) MustCreateTask(owner, title, categoryID, subcategoryID string) model.Task {
	db.t.Helper()
	task := &model.Task{
		Owner:         owner,
		Title:         title,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
	}
	if err := db.Storage.CreateTask(context.Background(), task); err != nil {
		db.t.Fatalf("failed to create task %q: %v", title, err)
	}
	return *task
}

// MustTask reloads a task.
func (db *TestDB) MustTask(id string) model.Task {
	db.t.Helper()
	task, err := db.Storage.GetTask(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load task %s: %v", id, err)
	}
	return *task
}

// MustCategories lists an owner's categories.
func (db *TestDB) MustCategories(owner string) []model.Category {
	db.t.Helper()
	cats, err := db.Storage.ListCategories(context.Background(), owner)
	if err != nil {
		db.t.Fatalf("failed to list categories: %v", err)
	}
	return cats
}

// MustSubcategories lists an owner's subcategories.
func (db *TestDB) MustSubcategories(owner string) []model.Subcategory {
	db.t.Helper()
	subs, err := db.Storage.ListOwnerSubcategories(context.Background(), owner)
	if err != nil {
		db.t.Fatalf("failed to list subcategories: %v", err)
	}
	return subs
}

// CategoryByName returns the first category whose name matches ignoring case.
func CategoryByName(cats []model.Category, name string) (model.Category, bool) {
	key := model.NormalizeName(name)
	for _, c := range cats {
		if model.NormalizeName(c.Name) == key {
			return c, true
		}
	}
	return model.Category{}, false
}

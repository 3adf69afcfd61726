// Package categories provides a fluent builder for seeding an owner's
// category tree in tests, including the duplicate and orphan states that
// reconciliation has to heal.
//
// Example usage:
//
//	tree := categories.NewBuilder(t).
//		WithCategory("Biking").
//		WithCategory("biking").
//		WithSubcategory("Biking", "Trilhas", false).
//		MustBuild(ctx, store, "alice")
package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/service"
)

// Builder provides a fluent interface for constructing test category trees.
type Builder interface {
	// WithCategory adds a custom category. Repeating a name creates a duplicate.
	WithCategory(name string) Builder

	// WithSystemCategory adds a pinned system category.
	WithSystemCategory(name string) Builder

	// WithOrderedCategory adds a custom category with an explicit order.
	WithOrderedCategory(name string, order int) Builder

	// WithSubcategory adds a subcategory under the most recently added
	// category with the given name.
	WithSubcategory(parent, name string, pinned bool) Builder

	// WithFixture adds every category of a fixture.
	WithFixture(fixture Fixture) Builder

	// Build writes the tree through a single batch, so duplicates are allowed.
	Build(ctx context.Context, store service.Storage, owner string) (Tree, error)

	// MustBuild is Build that fails the test on error.
	MustBuild(ctx context.Context, store service.Storage, owner string) Tree
}

type plannedCategory struct {
	fields model.CategoryFields
}

type plannedSubcategory struct {
	fields model.SubcategoryFields
	parent int
}

type builder struct {
	t             *testing.T
	categories    []plannedCategory
	subcategories []plannedSubcategory
}

// NewBuilder creates a new builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &builder{t: t}
}

func (b *builder) add(fields model.CategoryFields) Builder {
	b.categories = append(b.categories, plannedCategory{fields: fields})
	return b
}

func (b *builder) WithCategory(name string) Builder {
	return b.add(model.CategoryFields{Name: name, Kind: model.CategoryKindCustom, Active: true, Order: 100 + len(b.categories)})
}

func (b *builder) WithSystemCategory(name string) Builder {
	return b.add(model.CategoryFields{Name: name, Kind: model.CategoryKindSystem, Pinned: true, Active: true, Order: len(b.categories)})
}

func (b *builder) WithOrderedCategory(name string, order int) Builder {
	return b.add(model.CategoryFields{Name: name, Kind: model.CategoryKindCustom, Active: true, Order: order})
}

func (b *builder) WithSubcategory(parent, name string, pinned bool) Builder {
	b.t.Helper()
	for i := len(b.categories) - 1; i >= 0; i-- {
		if b.categories[i].fields.Name == parent {
			b.subcategories = append(b.subcategories, plannedSubcategory{
				parent: i,
				fields: model.SubcategoryFields{Name: name, Pinned: pinned, Active: true, Order: len(b.subcategories)},
			})
			return b
		}
	}
	b.t.Fatalf("subcategory %q refers to unknown category %q", name, parent)
	return b
}

func (b *builder) WithFixture(fixture Fixture) Builder {
	for _, name := range fixture.Categories() {
		b.WithCategory(name)
	}
	return b
}

func (b *builder) Build(ctx context.Context, store service.Storage, owner string) (Tree, error) {
	batch := store.NewBatch()
	catIDs := make([]string, len(b.categories))
	for i, c := range b.categories {
		catIDs[i] = batch.CreateCategory(owner, c.fields)
	}
	for _, s := range b.subcategories {
		batch.CreateSubcategory(owner, catIDs[s.parent], s.fields)
	}
	if err := batch.Commit(ctx); err != nil {
		return Tree{}, fmt.Errorf("failed to build category tree: %w", err)
	}

	cats, err := store.ListCategories(ctx, owner)
	if err != nil {
		return Tree{}, err
	}
	subs, err := store.ListOwnerSubcategories(ctx, owner)
	if err != nil {
		return Tree{}, err
	}
	return Tree{Categories: cats, Subcategories: subs}, nil
}

func (b *builder) MustBuild(ctx context.Context, store service.Storage, owner string) Tree {
	b.t.Helper()
	tree, err := b.Build(ctx, store, owner)
	if err != nil {
		b.t.Fatalf("%v", err)
	}
	return tree
}

// Tree is an owner's category tree as stored.
type Tree struct {
	Categories    []model.Category
	Subcategories []model.Subcategory
}

// CategoryIDs returns the ids of every category with exactly this name, in list order.
func (tr Tree) CategoryIDs(name string) []string {
	var ids []string
	for _, c := range tr.Categories {
		if c.Name == name {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// MustCategoryID returns the id of the only category with this name.
func (tr Tree) MustCategoryID(t *testing.T, name string) string {
	t.Helper()
	ids := tr.CategoryIDs(name)
	if len(ids) != 1 {
		t.Fatalf("expected one category %q, found %d", name, len(ids))
	}
	return ids[0]
}

// SubcategoryIDs returns the ids of subcategories with this name under categoryID.
func (tr Tree) SubcategoryIDs(categoryID, name string) []string {
	var ids []string
	for _, s := range tr.Subcategories {
		if s.CategoryID == categoryID && s.Name == name {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

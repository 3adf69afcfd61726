// Package storagetest holds the behavioral suite every service.Storage
// implementation must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, migrated and empty store. It should register its own cleanup.
type Factory func(t *testing.T) service.Storage

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore) })
	t.Run("CategoryProtection", func(t *testing.T) { testCategoryProtection(t, newStore) })
	t.Run("Subcategories", func(t *testing.T) { testSubcategories(t, newStore) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, newStore) })
	t.Run("ShareTokens", func(t *testing.T) { testShareTokens(t, newStore) })
	t.Run("Batch", func(t *testing.T) { testBatch(t, newStore) })
	t.Run("CatalogSync", func(t *testing.T) { testCatalogSync(t, newStore) })
	t.Run("Owners", func(t *testing.T) { testOwners(t, newStore) })
}

func ptr[T any](v T) *T { return &v }

func mustCategory(t *testing.T, s service.Storage, owner, name string, kind model.CategoryKind, order int) *model.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), owner, model.CategoryFields{
		Name: name, Kind: kind, Order: order, Active: true, Pinned: kind == model.CategoryKindSystem,
	})
	require.NoError(t, err)
	return c
}

func mustSubcategory(t *testing.T, s service.Storage, owner, categoryID, name string, pinned bool) *model.Subcategory {
	t.Helper()
	sub, err := s.CreateSubcategory(context.Background(), owner, categoryID, model.SubcategoryFields{
		Name: name, Pinned: pinned, Active: true,
	})
	require.NoError(t, err)
	return sub
}

func testCategories(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	b := mustCategory(t, s, "alice", "Trabalho", model.CategoryKindCustom, 2)
	a := mustCategory(t, s, "alice", "Pessoal", model.CategoryKindCustom, 1)
	mustCategory(t, s, "bob", "Pessoal", model.CategoryKindCustom, 0)

	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	cats, err := s.ListCategories(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, a.ID, cats[0].ID, "categories should be sorted by order")
	assert.Equal(t, b.ID, cats[1].ID)

	got, err := s.GetCategory(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trabalho", got.Name)
	assert.Equal(t, model.CategoryKindCustom, got.Kind)
	assert.True(t, got.Active)

	_, err = s.GetCategory(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	t.Run("duplicate names are rejected ignoring case", func(t *testing.T) {
		_, err := s.CreateCategory(ctx, "alice", model.CategoryFields{Name: "  pessoal "})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)

		err = s.UpdateCategory(ctx, b.ID, model.CategoryPatch{Name: ptr("PESSOAL")})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("update applies only set fields", func(t *testing.T) {
		require.NoError(t, s.UpdateCategory(ctx, b.ID, model.CategoryPatch{Color: ptr("#00ff00"), Order: ptr(9)}))
		got, err := s.GetCategory(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Trabalho", got.Name)
		assert.Equal(t, "#00ff00", got.Color)
		assert.Equal(t, 9, got.Order)
	})

	t.Run("kind is immutable through the accessor", func(t *testing.T) {
		err := s.UpdateCategory(ctx, b.ID, model.CategoryPatch{Kind: ptr(model.CategoryKindSystem)})
		assert.ErrorIs(t, err, common.ErrInvalidOperation)

		// Restating the stored kind is allowed.
		assert.NoError(t, s.UpdateCategory(ctx, b.ID, model.CategoryPatch{Kind: ptr(model.CategoryKindCustom)}))

		got, err := s.GetCategory(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CategoryKindCustom, got.Kind)
	})

	t.Run("update of missing category", func(t *testing.T) {
		err := s.UpdateCategory(ctx, "missing", model.CategoryPatch{Name: ptr("x")})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("delete custom category removes its subcategories", func(t *testing.T) {
		sub := mustSubcategory(t, s, "alice", b.ID, "Reuniões", false)
		require.NoError(t, s.DeleteCategory(ctx, b.ID))

		_, err := s.GetCategory(ctx, b.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = s.GetSubcategory(ctx, sub.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func testCategoryProtection(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	system := mustCategory(t, s, "alice", "Saúde", model.CategoryKindSystem, 0)
	sub := mustSubcategory(t, s, "alice", system.ID, "Consultas", true)

	err := s.DeleteCategory(ctx, system.ID)
	assert.ErrorIs(t, err, common.ErrProtectedRecord)

	err = s.DeleteSubcategory(ctx, sub.ID)
	assert.ErrorIs(t, err, common.ErrProtectedRecord)

	cats, err := s.ListCategories(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	subs, err := s.ListSubcategories(ctx, system.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	err = s.UpdateCategory(ctx, system.ID, model.CategoryPatch{Kind: ptr(model.CategoryKindCustom)})
	assert.ErrorIs(t, err, common.ErrInvalidOperation)

	err = s.DeleteCategory(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	t.Run("pinned records cannot be unpinned through the accessor", func(t *testing.T) {
		err := s.UpdateSubcategory(ctx, sub.ID, model.SubcategoryPatch{Pinned: ptr(false)})
		assert.ErrorIs(t, err, common.ErrInvalidOperation)
		err = s.DeleteSubcategory(ctx, sub.ID)
		assert.ErrorIs(t, err, common.ErrProtectedRecord)

		err = s.UpdateCategory(ctx, system.ID, model.CategoryPatch{Pinned: ptr(false)})
		assert.ErrorIs(t, err, common.ErrInvalidOperation)

		got, err := s.GetSubcategory(ctx, sub.ID)
		require.NoError(t, err)
		assert.True(t, got.Pinned)

		// Other fields of a pinned subcategory stay editable.
		require.NoError(t, s.UpdateSubcategory(ctx, sub.ID, model.SubcategoryPatch{Pinned: ptr(true), Color: ptr("#ff0000")}))
	})

	t.Run("custom category holding a pinned subcategory is protected", func(t *testing.T) {
		custom := mustCategory(t, s, "alice", "Academia", model.CategoryKindCustom, 1)
		moved := mustSubcategory(t, s, "alice", system.ID, "Exames", true)
		require.NoError(t, s.UpdateSubcategory(ctx, moved.ID, model.SubcategoryPatch{CategoryID: ptr(custom.ID)}))

		err := s.DeleteCategory(ctx, custom.ID)
		assert.ErrorIs(t, err, common.ErrProtectedRecord)

		got, err := s.GetSubcategory(ctx, moved.ID)
		require.NoError(t, err)
		assert.Equal(t, custom.ID, got.CategoryID)

		// Once the pinned child moves back the category can go.
		require.NoError(t, s.UpdateSubcategory(ctx, moved.ID, model.SubcategoryPatch{CategoryID: ptr(system.ID)}))
		require.NoError(t, s.DeleteCategory(ctx, custom.ID))
	})
}

func testSubcategories(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	casa := mustCategory(t, s, "alice", "Casa", model.CategoryKindCustom, 0)
	lazer := mustCategory(t, s, "alice", "Lazer", model.CategoryKindCustom, 1)

	second, err := s.CreateSubcategory(ctx, "alice", casa.ID, model.SubcategoryFields{Name: "Limpeza", Order: 2})
	require.NoError(t, err)
	first, err := s.CreateSubcategory(ctx, "alice", casa.ID, model.SubcategoryFields{Name: "Contas", Order: 1})
	require.NoError(t, err)

	subs, err := s.ListSubcategories(ctx, casa.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, first.ID, subs[0].ID)
	assert.Equal(t, second.ID, subs[1].ID)
	assert.Equal(t, casa.ID, subs[0].CategoryID)

	t.Run("names are unique within a category only", func(t *testing.T) {
		_, err := s.CreateSubcategory(ctx, "alice", casa.ID, model.SubcategoryFields{Name: "LIMPEZA"})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)

		_, err = s.CreateSubcategory(ctx, "alice", lazer.ID, model.SubcategoryFields{Name: "Limpeza"})
		assert.NoError(t, err)
	})

	t.Run("parent must exist", func(t *testing.T) {
		_, err := s.CreateSubcategory(ctx, "alice", "missing", model.SubcategoryFields{Name: "Órfã"})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("moving into a category with the same name is rejected", func(t *testing.T) {
		err := s.UpdateSubcategory(ctx, second.ID, model.SubcategoryPatch{CategoryID: ptr(lazer.ID)})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("move and rename", func(t *testing.T) {
		require.NoError(t, s.UpdateSubcategory(ctx, first.ID, model.SubcategoryPatch{
			CategoryID: ptr(lazer.ID),
			Name:       ptr("Viagens"),
		}))
		got, err := s.GetSubcategory(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, lazer.ID, got.CategoryID)
		assert.Equal(t, "Viagens", got.Name)
	})

	t.Run("owner listing spans categories", func(t *testing.T) {
		all, err := s.ListOwnerSubcategories(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		none, err := s.ListOwnerSubcategories(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete unpinned", func(t *testing.T) {
		require.NoError(t, s.DeleteSubcategory(ctx, second.ID))
		_, err := s.GetSubcategory(ctx, second.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func testTasks(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	cat := mustCategory(t, s, "alice", "Finanças", model.CategoryKindCustom, 0)
	sub := mustSubcategory(t, s, "alice", cat.ID, "Contas", false)
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	task := &model.Task{
		Owner:         "alice",
		Title:         "  Pagar aluguel ",
		CategoryID:    cat.ID,
		SubcategoryID: sub.ID,
		DueDate:       &due,
		Priority:      model.PriorityHigh,
		Value:         decimal.RequireFromString("1250.75"),
		Flow:          model.FlowOutflow,
		Recurrence:    model.RecurrenceMonthly,
		Installments:  12,
	}
	require.NoError(t, s.CreateTask(ctx, task))
	require.NotEmpty(t, task.ID)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pagar aluguel", got.Title)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, model.TypeFinancial, got.Type)
	assert.True(t, got.Value.Equal(decimal.RequireFromString("1250.75")), "value = %s", got.Value)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, sub.ID, got.SubcategoryID)
	assert.Equal(t, 12, got.Installments)

	t.Run("validation", func(t *testing.T) {
		assert.Error(t, s.CreateTask(ctx, &model.Task{Owner: "alice"}))
		assert.Error(t, s.CreateTask(ctx, &model.Task{Title: "no owner"}))
		assert.Error(t, s.CreateTask(ctx, nil))
	})

	t.Run("update links", func(t *testing.T) {
		require.NoError(t, s.UpdateTaskLinks(ctx, task.ID, cat.ID, ""))
		got, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, cat.ID, got.CategoryID)
		assert.Empty(t, got.SubcategoryID)
		assert.Equal(t, "Pagar aluguel", got.Title)

		err = s.UpdateTaskLinks(ctx, "missing", cat.ID, "")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("update task", func(t *testing.T) {
		got.Status = model.StatusDone
		got.DueDate = nil
		require.NoError(t, s.UpdateTask(ctx, got))

		again, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusDone, again.Status)
		assert.Nil(t, again.DueDate)
	})

	t.Run("list is scoped by owner", func(t *testing.T) {
		require.NoError(t, s.CreateTask(ctx, &model.Task{Owner: "bob", Title: "Other", CategoryID: "x"}))
		tasks, err := s.ListTasks(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, task.ID, tasks[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteTask(ctx, task.ID))
		_, err := s.GetTask(ctx, task.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), common.ErrNotFound)
	})
}

func testShareTokens(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	cat := mustCategory(t, s, "alice", "Pessoal", model.CategoryKindCustom, 0)
	task := &model.Task{Owner: "alice", Title: "Lista de compras", CategoryID: cat.ID}
	require.NoError(t, s.CreateTask(ctx, task))

	_, err := s.GetTaskByShareToken(ctx, "tok-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.SetTaskShareToken(ctx, task.ID, "tok-1"))
	shared, err := s.GetTaskByShareToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, task.ID, shared.ID)
	assert.Equal(t, "tok-1", shared.ShareToken)

	require.NoError(t, s.SetTaskShareToken(ctx, task.ID, ""))
	_, err = s.GetTaskByShareToken(ctx, "tok-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, s.SetTaskShareToken(ctx, "missing", "tok-2"), common.ErrNotFound)
}

func testBatch(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	t.Run("empty commit", func(t *testing.T) {
		b := s.NewBatch()
		assert.Equal(t, 0, b.Len())
		assert.NoError(t, b.Commit(ctx))
	})

	custom := mustCategory(t, s, "alice", "Estudos", model.CategoryKindCustom, 5)
	system := mustCategory(t, s, "alice", "Saúde", model.CategoryKindSystem, 0)
	pinned := mustSubcategory(t, s, "alice", system.ID, "Exames", true)

	b := s.NewBatch()
	newID := b.CreateCategory("alice", model.CategoryFields{Name: "Casa", Kind: model.CategoryKindSystem, Pinned: true, Active: true, Order: 1})
	newSubID := b.CreateSubcategory("alice", newID, model.SubcategoryFields{Name: "Contas", Pinned: true, Active: true})
	b.UpdateCategory(custom.ID, model.CategoryPatch{Kind: ptr(model.CategoryKindSystem), Pinned: ptr(true)})
	b.DeleteSubcategory(pinned.ID)
	b.DeleteCategory(system.ID)
	assert.NotEmpty(t, newID)
	assert.NotEmpty(t, newSubID)
	assert.Equal(t, 5, b.Len())

	// Nothing is visible before commit.
	_, err := s.GetCategory(ctx, newID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, b.Commit(ctx))

	created, err := s.GetCategory(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, "Casa", created.Name)
	assert.Equal(t, model.CategoryKindSystem, created.Kind)

	createdSub, err := s.GetSubcategory(ctx, newSubID)
	require.NoError(t, err)
	assert.Equal(t, newID, createdSub.CategoryID)

	promoted, err := s.GetCategory(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryKindSystem, promoted.Kind, "batch may promote kind")
	assert.True(t, promoted.Pinned)

	_, err = s.GetCategory(ctx, system.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "batch may delete protected records")
	_, err = s.GetSubcategory(ctx, pinned.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	t.Run("failed commit applies nothing", func(t *testing.T) {
		b := s.NewBatch()
		id := b.CreateCategory("alice", model.CategoryFields{Name: "Viagens"})
		b.UpdateCategory("missing", model.CategoryPatch{Name: ptr("x")})

		err := b.Commit(ctx)
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = s.GetCategory(ctx, id)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func testCatalogSync(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.LastCatalogSync(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.RecordCatalogSync(ctx, model.CatalogSync{Owner: "alice", CatalogVersion: "2025.1", CategoriesCreated: 3}))
	require.NoError(t, s.RecordCatalogSync(ctx, model.CatalogSync{Owner: "alice", CatalogVersion: "2025.2", SubcategoriesUpdated: 2}))
	require.NoError(t, s.RecordCatalogSync(ctx, model.CatalogSync{Owner: "bob", CatalogVersion: "2025.1"}))

	last, err := s.LastCatalogSync(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "2025.2", last.CatalogVersion)
	assert.Equal(t, 2, last.SubcategoriesUpdated)
	assert.False(t, last.AppliedAt.IsZero())

	assert.Error(t, s.RecordCatalogSync(ctx, model.CatalogSync{Owner: "alice"}))
}

func testOwners(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	owners, err := s.ListOwners(ctx)
	require.NoError(t, err)
	assert.Empty(t, owners)

	mustCategory(t, s, "carol", "Pessoal", model.CategoryKindCustom, 0)
	mustCategory(t, s, "alice", "Pessoal", model.CategoryKindCustom, 0)
	require.NoError(t, s.CreateTask(ctx, &model.Task{Owner: "dave", Title: "Solo", CategoryID: "none"}))
	require.NoError(t, s.CreateTask(ctx, &model.Task{Owner: "alice", Title: "Dup", CategoryID: "none"}))

	owners, err = s.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol", "dave"}, owners)
}

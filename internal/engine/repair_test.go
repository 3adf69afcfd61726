package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/testutil/categories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairLinks_GhostCategoryFallsBack(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithOrderedCategory("Trabalho", 0).WithOrderedCategory("Pessoal", 1)
	})
	pessoal := tree.MustCategoryID(t, "Pessoal")
	task := db.MustCreateTask(owner, "Renovar passaporte", "ghost-123", "")

	report, err := e.RepairLinks(ctx, owner, NewRemap(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Unresolved)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, []RepairReason{ReasonFallback}, report.Changes[0].Reasons)
	assert.Equal(t, "ghost-123", report.Changes[0].FromCategory)

	assert.Equal(t, pessoal, db.MustTask(task.ID).CategoryID)
}

func TestRepairLinks_DanglingSubcategoryIsCleared(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithCategory("Estudos")
	})
	estudos := tree.MustCategoryID(t, "Estudos")
	task := db.MustCreateTask(owner, "Ler capítulo 3", estudos, "missing-sub")

	report, err := e.RepairLinks(ctx, owner, Remap{}, nil)
	require.NoError(t, err)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, []RepairReason{ReasonDanglingSubcategory}, report.Changes[0].Reasons)

	got := db.MustTask(task.ID)
	assert.Equal(t, estudos, got.CategoryID)
	assert.Empty(t, got.SubcategoryID)
}

func TestRepairLinks_AdoptsSubcategoryParent(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.
			WithCategory("Pessoal").
			WithCategory("Trabalho").
			WithSubcategory("Trabalho", "Reuniões", false)
	})
	trabalho := tree.MustCategoryID(t, "Trabalho")
	reunioes := tree.SubcategoryIDs(trabalho, "Reuniões")[0]
	task := db.MustCreateTask(owner, "Pauta semanal", "ghost-456", reunioes)

	report, err := e.RepairLinks(ctx, owner, Remap{}, nil)
	require.NoError(t, err)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, []RepairReason{ReasonAdoptedParent}, report.Changes[0].Reasons)

	got := db.MustTask(task.ID)
	assert.Equal(t, trabalho, got.CategoryID)
	assert.Equal(t, reunioes, got.SubcategoryID)
}

func TestRepairLinks_ParentMismatchClearsSubcategory(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.
			WithCategory("Pessoal").
			WithCategory("Trabalho").
			WithSubcategory("Trabalho", "Prazos", false)
	})
	pessoal := tree.MustCategoryID(t, "Pessoal")
	prazos := tree.SubcategoryIDs(tree.MustCategoryID(t, "Trabalho"), "Prazos")[0]
	task := db.MustCreateTask(owner, "Entregar relatório", pessoal, prazos)

	report, err := e.RepairLinks(ctx, owner, Remap{}, nil)
	require.NoError(t, err)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, []RepairReason{ReasonParentMismatch}, report.Changes[0].Reasons)

	got := db.MustTask(task.ID)
	assert.Equal(t, pessoal, got.CategoryID)
	assert.Empty(t, got.SubcategoryID)
}

func TestRepairLinks_FirstCategoryWhenFallbackMissing(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithOrderedCategory("Zeta", 5).WithOrderedCategory("Alpha", 1)
	})
	task := db.MustCreateTask(owner, "Sem categoria", "ghost", "")

	_, err := e.RepairLinks(ctx, owner, Remap{}, nil)
	require.NoError(t, err)
	assert.Equal(t, tree.MustCategoryID(t, "Alpha"), db.MustTask(task.ID).CategoryID)
}

func TestRepairLinks_NoCategoriesLeavesTaskUnresolved(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)
	task := db.MustCreateTask(owner, "Órfã", "ghost", "")

	report, err := e.RepairLinks(ctx, owner, Remap{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unresolved)
	assert.Zero(t, report.Updated)
	assert.Equal(t, "ghost", db.MustTask(task.ID).CategoryID)
}

func TestRepairLinks_ValidTasksAreNotWritten(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithCategory("Lazer").WithSubcategory("Lazer", "Viagens", false)
	})
	lazer := tree.MustCategoryID(t, "Lazer")
	viagens := tree.SubcategoryIDs(lazer, "Viagens")[0]
	task := db.MustTask(db.MustCreateTask(owner, "Reservar hotel", lazer, viagens).ID)
	plain := db.MustTask(db.MustCreateTask(owner, "Separar roupas", lazer, "").ID)

	report, err := e.RepairLinks(ctx, owner, Remap{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Zero(t, report.Updated)
	assert.Empty(t, report.Changes)
	assert.Equal(t, task.UpdatedAt, db.MustTask(task.ID).UpdatedAt)
	assert.Equal(t, plain.UpdatedAt, db.MustTask(plain.ID).UpdatedAt)
}

func TestRepairLinks_ReportsProgress(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithCategory("Pessoal")
	})
	pessoal := tree.MustCategoryID(t, "Pessoal")
	db.MustCreateTask(owner, "a", pessoal, "")
	db.MustCreateTask(owner, "b", "ghost", "")
	db.MustCreateTask(owner, "c", pessoal, "")

	var calls [][2]int
	_, err := e.RepairLinks(ctx, owner, Remap{}, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestRepairLinks_CanceledContext(t *testing.T) {
	e, db := setupEngine(t)
	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithCategory("Pessoal")
	})
	db.MustCreateTask(owner, "a", tree.MustCategoryID(t, "Pessoal"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.RepairLinks(ctx, owner, Remap{}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlanRepair(t *testing.T) {
	known := map[string]bool{"cat-a": true, "cat-b": true}
	subcategories := map[string]model.Subcategory{
		"sub-a": {ID: "sub-a", CategoryID: "cat-a"},
		"sub-b": {ID: "sub-b", CategoryID: "cat-b"},
	}
	remap := Remap{
		Categories:    map[string]string{"old-a": "cat-a"},
		Subcategories: map[string]string{"old-sub-a": "sub-a"},
	}

	tests := []struct {
		task    model.Task
		name    string
		wantCat string
		wantSub string
		reasons []RepairReason
		changed bool
	}{
		{
			name:    "valid links",
			task:    model.Task{CategoryID: "cat-a", SubcategoryID: "sub-a"},
			wantCat: "cat-a", wantSub: "sub-a",
		},
		{
			name:    "remapped pair",
			task:    model.Task{CategoryID: "old-a", SubcategoryID: "old-sub-a"},
			wantCat: "cat-a", wantSub: "sub-a",
			reasons: []RepairReason{ReasonRemapped},
			changed: true,
		},
		{
			name:    "remap runs before fallback",
			task:    model.Task{CategoryID: "old-a"},
			wantCat: "cat-a",
			reasons: []RepairReason{ReasonRemapped},
			changed: true,
		},
		{
			name:    "remapped category with foreign subcategory",
			task:    model.Task{CategoryID: "old-a", SubcategoryID: "sub-b"},
			wantCat: "cat-a",
			reasons: []RepairReason{ReasonRemapped, ReasonParentMismatch},
			changed: true,
		},
		{
			name:    "dangling category and subcategory",
			task:    model.Task{CategoryID: "ghost", SubcategoryID: "ghost-sub"},
			wantCat: "cat-b",
			reasons: []RepairReason{ReasonFallback, ReasonDanglingSubcategory},
			changed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, changed := planRepair(tt.task, remap, known, subcategories, "cat-b")
			assert.Equal(t, tt.changed, changed)
			if !changed {
				return
			}
			assert.Equal(t, tt.wantCat, change.ToCategory)
			assert.Equal(t, tt.wantSub, change.ToSubcategory)
			assert.Equal(t, tt.reasons, change.Reasons)
		})
	}
}

func TestFallbackCategory(t *testing.T) {
	e := &Engine{fallback: "pessoal"}
	assert.Empty(t, e.fallbackCategory(nil))

	cats := []model.Category{
		{ID: "2", Name: "Casa", Order: 1},
		{ID: "1", Name: "PESSOAL", Order: 3},
		{ID: "3", Name: "Lazer", Order: 0},
	}
	assert.Equal(t, "1", e.fallbackCategory(cats))

	e.fallback = "Inexistente"
	assert.Equal(t, "3", e.fallbackCategory(cats))
}

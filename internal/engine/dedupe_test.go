package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/testutil"
	"github.com/Veraticus/taskflow/internal/testutil/categories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicate_SurvivorSelection(t *testing.T) {
	tests := []struct {
		build    func(b categories.Builder) categories.Builder
		name     string
		survivor string
		removed  int
	}{
		{
			name: "lowest order wins",
			build: func(b categories.Builder) categories.Builder {
				return b.WithOrderedCategory("biking", 9).WithOrderedCategory("Biking", 2)
			},
			survivor: "Biking",
			removed:  1,
		},
		{
			name: "case and whitespace variants collapse",
			build: func(b categories.Builder) categories.Builder {
				return b.WithFixture(categories.FixtureDuplicates)
			},
			survivor: "Biking",
			removed:  3,
		},
		{
			name: "distinct names are untouched",
			build: func(b categories.Builder) categories.Builder {
				return b.WithCategory("Biking").WithCategory("Hiking")
			},
			survivor: "Biking",
			removed:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, db := setupEngine(t)
			db.Build(owner, tt.build)

			report, err := e.Deduplicate(context.Background(), owner)
			require.NoError(t, err)
			assert.Equal(t, tt.removed, report.CategoriesRemoved)
			assert.Len(t, report.Remap.Categories, tt.removed)

			cats := db.MustCategories(owner)
			assertNoDuplicateNames(t, cats)
			got, ok := testutil.CategoryByName(cats, tt.survivor)
			require.True(t, ok)
			assert.Equal(t, tt.survivor, got.Name)
		})
	}
}

func TestDeduplicate_SurvivorInheritsProtection(t *testing.T) {
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithOrderedCategory("Leitura", 0).WithSystemCategory("leitura")
	})
	survivor := tree.MustCategoryID(t, "Leitura")

	report, err := e.Deduplicate(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CategoriesRemoved)
	assert.Equal(t, 1, report.CategoriesPromoted)

	cats := db.MustCategories(owner)
	require.Len(t, cats, 1)
	assert.Equal(t, survivor, cats[0].ID)
	assert.Equal(t, model.CategoryKindSystem, cats[0].Kind)
	assert.True(t, cats[0].Pinned)
}

func TestDeduplicate_MergesSubcategories(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.
			WithCategory("Biking").
			WithSubcategory("Biking", "Trilhas", false).
			WithCategory("biking").
			WithSubcategory("biking", "trilhas", true).
			WithSubcategory("biking", "Estrada", false)
	})
	keep := tree.MustCategoryID(t, "Biking")
	drop := tree.MustCategoryID(t, "biking")
	keepTrail := tree.SubcategoryIDs(keep, "Trilhas")[0]
	dropTrail := tree.SubcategoryIDs(drop, "trilhas")[0]
	road := tree.SubcategoryIDs(drop, "Estrada")[0]

	onTrail := db.MustCreateTask(owner, "Pedal no parque", drop, dropTrail)
	onRoad := db.MustCreateTask(owner, "Pedal na serra", drop, road)

	report, err := e.Deduplicate(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CategoriesRemoved)
	assert.Equal(t, 1, report.SubcategoriesRemoved)
	assert.Equal(t, 1, report.SubcategoriesMoved)
	assert.Equal(t, 1, report.SubcategoriesPinned)
	assert.Equal(t, keep, report.Remap.Categories[drop])
	assert.Equal(t, keepTrail, report.Remap.Subcategories[dropTrail])

	subs, err := db.Storage.ListSubcategories(ctx, keep)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	byID := map[string]model.Subcategory{subs[0].ID: subs[0], subs[1].ID: subs[1]}
	assert.True(t, byID[keepTrail].Pinned, "survivor inherits pinned")
	assert.Contains(t, byID, road)

	_, err = db.Storage.GetCategory(ctx, drop)
	require.Error(t, err)

	got := db.MustTask(onTrail.ID)
	assert.Equal(t, keep, got.CategoryID)
	assert.Equal(t, keepTrail, got.SubcategoryID)
	got = db.MustTask(onRoad.ID)
	assert.Equal(t, keep, got.CategoryID)
	assert.Equal(t, road, got.SubcategoryID)

	require.NotNil(t, report.Repair)
	assert.Equal(t, 2, report.Repair.Updated)
	for _, change := range report.Repair.Changes {
		assert.Contains(t, change.Reasons, ReasonRemapped)
	}
	assertTasksResolve(t, db)
}

func TestDeduplicate_DuplicateSubcategoriesUnderOneParent(t *testing.T) {
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.
			WithCategory("Casa").
			WithSubcategory("Casa", "Limpeza", false).
			WithSubcategory("Casa", "LIMPEZA", false)
	})
	casa := tree.MustCategoryID(t, "Casa")
	keep := tree.SubcategoryIDs(casa, "Limpeza")[0]
	drop := tree.SubcategoryIDs(casa, "LIMPEZA")[0]
	task := db.MustCreateTask(owner, "Lavar janelas", casa, drop)

	report, err := e.Deduplicate(context.Background(), owner)
	require.NoError(t, err)
	assert.Zero(t, report.CategoriesRemoved)
	assert.Equal(t, 1, report.SubcategoriesRemoved)
	assert.Len(t, db.MustSubcategories(owner), 1)
	assert.Equal(t, keep, db.MustTask(task.ID).SubcategoryID)
}

func TestDeduplicate_NothingToDoWritesNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := &recordingStore{Store: db.Storage}
	e := New(store, nil)

	db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithFixture(categories.FixtureMinimal)
	})

	report, err := e.Deduplicate(context.Background(), owner)
	require.NoError(t, err)
	assert.Zero(t, report.Remap.Len())
	assert.Empty(t, store.commitSizes)
}

func TestGroupCategories_KeepsSortedOrder(t *testing.T) {
	cats := []model.Category{
		{ID: "1", Name: "A"},
		{ID: "2", Name: "b"},
		{ID: "3", Name: " a "},
		{ID: "4", Name: "B"},
	}
	groups := groupCategories(cats)
	require.Len(t, groups, 2)
	assert.Equal(t, "1", groups[0][0].ID)
	assert.Equal(t, "3", groups[0][1].ID)
	assert.Equal(t, "2", groups[1][0].ID)
	assert.Equal(t, "4", groups[1][1].ID)
}

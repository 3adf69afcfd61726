package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/taskflow/internal/catalog"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/testutil"
	"github.com/Veraticus/taskflow/internal/testutil/categories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncSystemCatalog_EmptyOwner(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)
	cat := catalog.Default()

	report, err := e.SyncSystemCatalog(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, cat.Len(), report.CategoriesCreated)
	assert.Zero(t, report.CategoriesUpdated)
	assert.Equal(t, cat.Version(), report.CatalogVersion)

	cats := db.MustCategories(owner)
	require.Len(t, cats, cat.Len())
	model.SortCategories(cats)

	wantSubs := 0
	for i, entry := range cat.Entries() {
		c := cats[i]
		assert.Equal(t, entry.Name, c.Name)
		assert.Equal(t, model.CategoryKindSystem, c.Kind)
		assert.True(t, c.Pinned, "%s should be pinned", c.Name)
		assert.True(t, c.Active)
		assert.Equal(t, i, c.Order)
		assert.Equal(t, entry.Color, c.Color)

		subs, err := db.Storage.ListSubcategories(ctx, c.ID)
		require.NoError(t, err)
		names := make([]string, len(subs))
		for j, s := range subs {
			names[j] = s.Name
			assert.True(t, s.Pinned)
			assert.Equal(t, j, s.Order)
		}
		assert.Equal(t, entry.Subcategories, names, "subcategories of %s", c.Name)
		wantSubs += len(entry.Subcategories)
	}
	assert.Equal(t, wantSubs, report.SubcategoriesCreated)

	last, err := db.Storage.LastCatalogSync(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, cat.Version(), last.CatalogVersion)
	assert.Equal(t, cat.Len(), last.CategoriesCreated)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := &recordingStore{Store: db.Storage}
	e := New(store, catalog.Default())

	_, err := e.Seed(ctx, owner)
	require.NoError(t, err)
	cats := db.MustCategories(owner)
	subs := db.MustSubcategories(owner)
	commits := len(store.commitSizes)

	report, err := e.Seed(ctx, owner)
	require.NoError(t, err)
	assert.False(t, report.Changed())
	assert.Equal(t, commits, len(store.commitSizes), "second run should not write")
	assert.Equal(t, 1, store.syncsWritten, "unchanged run at the same version is not audited")
	assert.ElementsMatch(t, cats, db.MustCategories(owner))
	assert.ElementsMatch(t, subs, db.MustSubcategories(owner))
}

func duplicateCasaCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("test-1", "", []catalog.Entry{
		{Name: "X", Subcategories: []string{"Um"}},
		{Name: "Y", Subcategories: []string{"Dois"}},
		{Name: "Casa", Icon: "home", Subcategories: []string{"Limpeza"}},
	})
	require.NoError(t, err)
	return cat
}

func TestSeed_IdempotentOverDuplicates(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, duplicateCasaCatalog(t))
	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithOrderedCategory("Casa", 0).WithOrderedCategory("casa", 1)
	})

	_, err := e.Seed(ctx, owner)
	require.NoError(t, err)
	cats := db.MustCategories(owner)
	subs := db.MustSubcategories(owner)

	report, err := e.Seed(ctx, owner)
	require.NoError(t, err)
	assert.False(t, report.Changed(), "second run over duplicates should not write")
	assert.ElementsMatch(t, cats, db.MustCategories(owner))
	assert.ElementsMatch(t, subs, db.MustSubcategories(owner))
	assert.Len(t, subs, 3)

	system := 0
	for _, id := range append(tree.CategoryIDs("Casa"), tree.CategoryIDs("casa")...) {
		c, err := db.Storage.GetCategory(ctx, id)
		require.NoError(t, err)
		if c.Kind == model.CategoryKindSystem {
			system++
			assert.Equal(t, 2, c.Order)
		}
	}
	assert.Equal(t, 1, system, "only one duplicate is adopted by the catalog")
}

func TestSeed_PrefersProtectedDuplicate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, duplicateCasaCatalog(t))
	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithOrderedCategory("Casa", 0).WithSystemCategory("casa")
	})
	custom := tree.MustCategoryID(t, "Casa")
	system := tree.MustCategoryID(t, "casa")

	_, err := e.Seed(ctx, owner)
	require.NoError(t, err)

	got, err := db.Storage.GetCategory(ctx, custom)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryKindCustom, got.Kind)
	assert.Equal(t, 0, got.Order)

	subs, err := db.Storage.ListSubcategories(ctx, system)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Limpeza", subs[0].Name)
}

func TestSeed_KeepsDeactivatedCategoryInactive(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	_, err := e.Seed(ctx, owner)
	require.NoError(t, err)
	lazer, ok := testutil.CategoryByName(db.MustCategories(owner), "Lazer")
	require.True(t, ok)
	inactive := false
	require.NoError(t, db.Storage.UpdateCategory(ctx, lazer.ID, model.CategoryPatch{Active: &inactive}))

	report, err := e.SyncSystemCatalog(ctx, owner)
	require.NoError(t, err)
	assert.False(t, report.Changed())

	got, err := db.Storage.GetCategory(ctx, lazer.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, model.CategoryKindSystem, got.Kind)
}

func TestSeed_KeepsCustomData(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithCategory("Mercado").WithSubcategory("Mercado", "Feira", false)
	})
	mercado := tree.MustCategoryID(t, "Mercado")
	feira := tree.SubcategoryIDs(mercado, "Feira")
	require.Len(t, feira, 1)
	task := db.MustCreateTask(owner, "Comprar frutas", mercado, feira[0])

	_, err := e.Seed(ctx, owner)
	require.NoError(t, err)

	cats := db.MustCategories(owner)
	assert.Len(t, cats, catalog.Default().Len()+1)
	got, ok := testutil.CategoryByName(cats, "Mercado")
	require.True(t, ok)
	assert.Equal(t, mercado, got.ID)
	assert.Equal(t, model.CategoryKindCustom, got.Kind)
	assert.False(t, got.Pinned)

	reloaded := db.MustTask(task.ID)
	assert.Equal(t, mercado, reloaded.CategoryID)
	assert.Equal(t, feira[0], reloaded.SubcategoryID)
}

func TestSeed_PromotesMatchingCustomCategory(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	tree := db.Build(owner, func(b categories.Builder) categories.Builder {
		return b.WithCategory("trabalho").WithSubcategory("trabalho", "reuniões", false)
	})
	id := tree.MustCategoryID(t, "trabalho")

	report, err := e.Seed(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, catalog.Default().Len()-1, report.CategoriesCreated)
	assert.Equal(t, 1, report.CategoriesUpdated)
	assert.Equal(t, 1, report.SubcategoriesUpdated)

	got, err := db.Storage.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryKindSystem, got.Kind)
	assert.True(t, got.Pinned)
	assert.Equal(t, "trabalho", got.Name, "names are matched, not rewritten")

	subs, err := db.Storage.ListSubcategories(ctx, id)
	require.NoError(t, err)
	entry, ok := catalog.Default().Lookup("Trabalho")
	require.True(t, ok)
	assert.Len(t, subs, len(entry.Subcategories))
	for _, s := range subs {
		assert.True(t, s.Pinned, "%s should be pinned", s.Name)
	}
	assertNoDuplicateNames(t, db.MustCategories(owner))
}

func TestSeed_AppliesCatalogDrift(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	v1, err := catalog.New("v1", "Casa", []catalog.Entry{
		{Name: "Casa", Icon: "home", Color: "#111111", Subcategories: []string{"Limpeza"}},
	})
	require.NoError(t, err)
	v2, err := catalog.New("v2", "Casa", []catalog.Entry{
		{Name: "Jardim", Icon: "leaf", Color: "#00FF00"},
		{Name: "Casa", Icon: "house", Color: "#222222", Description: "Lar", Subcategories: []string{"Limpeza", "Reparos"}},
	})
	require.NoError(t, err)

	_, err = New(db.Storage, v1).Seed(ctx, owner)
	require.NoError(t, err)
	casa, ok := testutil.CategoryByName(db.MustCategories(owner), "Casa")
	require.True(t, ok)

	report, err := New(db.Storage, v2).Seed(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CategoriesCreated)
	assert.Equal(t, 1, report.CategoriesUpdated)
	assert.Equal(t, 1, report.SubcategoriesCreated)

	got, err := db.Storage.GetCategory(ctx, casa.ID)
	require.NoError(t, err)
	assert.Equal(t, "house", got.Icon)
	assert.Equal(t, "#222222", got.Color)
	assert.Equal(t, "Lar", got.Description)
	assert.Equal(t, 1, got.Order)

	last, err := db.Storage.LastCatalogSync(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "v2", last.CatalogVersion)
}

func TestSeed_RecordsVersionBumpWithoutChanges(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	entries := []catalog.Entry{{Name: "Casa"}}
	v1, err := catalog.New("v1", "", entries)
	require.NoError(t, err)
	v2, err := catalog.New("v2", "", entries)
	require.NoError(t, err)

	_, err = New(db.Storage, v1).Seed(ctx, owner)
	require.NoError(t, err)

	report, err := New(db.Storage, v2).Seed(ctx, owner)
	require.NoError(t, err)
	assert.False(t, report.Changed())

	last, err := db.Storage.LastCatalogSync(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "v2", last.CatalogVersion)
	assert.Zero(t, last.CategoriesCreated)
}

func TestSeed_RepairsTasksAfterSeeding(t *testing.T) {
	ctx := context.Background()
	e, db := setupEngine(t)

	task := db.MustCreateTask(owner, "Pagar luz", "ghost-123", "")

	report, err := e.Seed(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, report.Repair)
	assert.Equal(t, 1, report.Repair.Updated)

	pessoal, ok := testutil.CategoryByName(db.MustCategories(owner), catalog.DefaultFallback)
	require.True(t, ok)
	assert.Equal(t, pessoal.ID, db.MustTask(task.ID).CategoryID)
}

func TestCategoryDrift(t *testing.T) {
	c := model.Category{
		Kind: model.CategoryKindSystem, Pinned: true, Order: 2,
		Icon: "home", Color: "#fff", Description: "d",
	}
	assert.True(t, categoryDrift(c, "home", "#fff", "d", 2).IsEmpty())

	patch := categoryDrift(c, "house", "#fff", "d", 3)
	require.NotNil(t, patch.Icon)
	require.NotNil(t, patch.Order)
	assert.Equal(t, "house", *patch.Icon)
	assert.Equal(t, 3, *patch.Order)
	assert.Nil(t, patch.Color)
	assert.Nil(t, patch.Kind)

	custom := model.Category{Kind: model.CategoryKindCustom}
	patch = categoryDrift(custom, "", "", "", 0)
	require.NotNil(t, patch.Kind)
	require.NotNil(t, patch.Pinned)
	assert.Equal(t, model.CategoryKindSystem, *patch.Kind)
	assert.True(t, *patch.Pinned)
}

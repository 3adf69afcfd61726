package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/testutil"
	"github.com/Veraticus/taskflow/internal/testutil/categories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDrafts(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		titles  []string
		wantErr bool
	}{
		{
			name:   "array",
			input:  `[{"title":"Pagar aluguel","category":"Casa"},{"title":"Ler"}]`,
			titles: []string{"Pagar aluguel", "Ler"},
		},
		{
			name:   "tasks envelope",
			input:  `{"tasks":[{"title":"Consulta"}]}`,
			titles: []string{"Consulta"},
		},
		{
			name:   "single object",
			input:  `{"title":"  Academia  ","category":"Saúde"}`,
			titles: []string{"Academia"},
		},
		{
			name:   "code fence",
			input:  "```json\n[{\"title\":\"Reunião\"}]\n```",
			titles: []string{"Reunião"},
		},
		{
			name:   "empty envelope",
			input:  `{"tasks":[]}`,
			titles: []string{},
		},
		{name: "empty", input: "  ", wantErr: true},
		{name: "prose", input: "Here are your tasks", wantErr: true},
		{name: "missing title", input: `[{"category":"Casa"}]`, wantErr: true},
		{name: "broken json", input: `[{"title":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := ParseDrafts([]byte(tt.input))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDraft)
				return
			}
			require.NoError(t, err)
			titles := make([]string, 0, len(drafts))
			for _, d := range drafts {
				titles = append(titles, d.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestParseDrafts_Value(t *testing.T) {
	drafts, err := ParseDrafts([]byte(`[{"title":"a","value":120.50},{"title":"b","value":null},{"title":"c"}]`))
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	assert.True(t, drafts[0].Value.Valid)
	assert.True(t, drafts[0].Value.Decimal.Equal(decimal.RequireFromString("120.5")))
	assert.False(t, drafts[1].Value.Valid)
	assert.False(t, drafts[2].Value.Valid)
}

func TestDraft_Due(t *testing.T) {
	due, err := Draft{DueDate: "2025-03-10"}.Due()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *due)

	due, err = Draft{DueDate: "2025-03-10T15:04:05-03:00"}.Due()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 18, 4, 5, 0, time.UTC), *due)

	due, err = Draft{}.Due()
	require.NoError(t, err)
	assert.Nil(t, due)

	_, err = Draft{DueDate: "amanhã"}.Due()
	require.ErrorIs(t, err, ErrInvalidDraft)
}

func testTree() ([]model.Category, []model.Subcategory) {
	cats := []model.Category{
		{ID: "c-trab", Name: "Trabalho", Order: 1},
		{ID: "c-pes", Name: "Pessoal", Order: 0},
		{ID: "c-fin", Name: "Finanças", Order: 2},
	}
	subs := []model.Subcategory{
		{ID: "s-reun", CategoryID: "c-trab", Name: "Reuniões"},
		{ID: "s-contas", CategoryID: "c-fin", Name: "Contas a pagar"},
	}
	return cats, subs
}

func TestResolver_ResolveCategory(t *testing.T) {
	cats, _ := testTree()
	r := NewResolver(FallbackNamed, "Pessoal")

	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{name: "exact", input: "Trabalho", wantID: "c-trab"},
		{name: "case and space", input: "  finanÇas ", wantID: "c-fin"},
		{name: "input contains name", input: "Trabalho remoto", wantID: "c-trab"},
		{name: "name contains input", input: "fin", wantID: "c-fin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveCategory(tt.input, cats)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, err := r.ResolveCategory("Viagem", cats)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.ResolveCategory("", cats)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolver_FallbackPolicies(t *testing.T) {
	cats, subs := testTree()
	draft := Draft{Title: "Algo", Category: "Inexistente"}

	task, res, err := NewResolver(FallbackNamed, "Finanças").Resolve("alice", draft, cats, subs)
	require.NoError(t, err)
	assert.Equal(t, "c-fin", task.CategoryID)
	assert.True(t, res.CategoryFellBack)

	task, _, err = NewResolver(FallbackNamed, "Sumiu").Resolve("alice", draft, cats, subs)
	require.NoError(t, err)
	assert.Equal(t, "c-pes", task.CategoryID, "missing named fallback uses the first category")

	task, _, err = NewResolver(FallbackFirst, "Finanças").Resolve("alice", draft, cats, subs)
	require.NoError(t, err)
	assert.Equal(t, "c-pes", task.CategoryID)

	_, _, err = NewResolver(FallbackNone, "").Resolve("alice", draft, cats, subs)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, _, err = NewResolver(FallbackFirst, "").Resolve("alice", draft, nil, nil)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolver_SubcategoryOnlyWithinCategory(t *testing.T) {
	cats, subs := testTree()
	r := NewResolver(FallbackNamed, "Pessoal")

	task, res, err := r.Resolve("alice", Draft{Title: "Pauta", Category: "Trabalho", Subcategory: "reuniões"}, cats, subs)
	require.NoError(t, err)
	assert.Equal(t, "s-reun", task.SubcategoryID)
	assert.True(t, res.SubcategoryMatched)

	task, res, err = r.Resolve("alice", Draft{Title: "Pauta", Category: "Pessoal", Subcategory: "Reuniões"}, cats, subs)
	require.NoError(t, err)
	assert.Equal(t, "c-pes", task.CategoryID)
	assert.Empty(t, task.SubcategoryID)
	assert.True(t, res.SubcategoryRejected)
}

func TestResolver_FinancialDraft(t *testing.T) {
	cats, subs := testTree()
	draft := Draft{
		Title:       "Conta de luz",
		Category:    "Finanças",
		Subcategory: "Contas",
		Value:       decimal.NewNullDecimal(decimal.RequireFromString("-89.90")),
		Priority:    "alta",
		Recurrence:  "mensal",
	}

	task, _, err := NewResolver(FallbackNamed, "Pessoal").Resolve("alice", draft, cats, subs)
	require.NoError(t, err)
	assert.Equal(t, "alice", task.Owner)
	assert.Equal(t, model.TypeFinancial, task.Type)
	assert.Equal(t, model.FlowOutflow, task.Flow)
	assert.True(t, task.Value.Equal(decimal.RequireFromString("89.90")))
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, model.RecurrenceMonthly, task.Recurrence)
	assert.Equal(t, "s-contas", task.SubcategoryID)

	_, _, err = NewResolver(FallbackNamed, "Pessoal").Resolve("alice", Draft{Title: "x", Flow: "sideways"}, cats, subs)
	require.ErrorIs(t, err, ErrInvalidDraft)
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	tree := db.Build("alice", func(b categories.Builder) categories.Builder {
		return b.
			WithOrderedCategory("Pessoal", 0).
			WithOrderedCategory("Casa", 1).
			WithSubcategory("Casa", "Limpeza", false)
	})
	casa := tree.MustCategoryID(t, "Casa")

	drafts, err := ParseDrafts([]byte(`{"tasks":[
		{"title":"Faxina","category":"casa","subcategory":"limpeza"},
		{"title":"Sem dono","category":"Viagem"}
	]}`))
	require.NoError(t, err)

	results, err := NewImporter(db.Storage, NewResolver(FallbackNamed, "Pessoal")).Import(ctx, "alice", drafts)
	require.NoError(t, err)
	require.Len(t, results, 2)

	stored := db.MustTask(results[0].Task.ID)
	assert.Equal(t, casa, stored.CategoryID)
	assert.Equal(t, tree.SubcategoryIDs(casa, "Limpeza")[0], stored.SubcategoryID)
	assert.Equal(t, tree.MustCategoryID(t, "Pessoal"), db.MustTask(results[1].Task.ID).CategoryID)
	assert.True(t, results[1].Resolution.CategoryFellBack)
}

type failingStore struct {
	Store
}

func (failingStore) ListCategories(context.Context, string) ([]model.Category, error) {
	return nil, common.ErrStoreUnavailable
}

func TestImporter_StoreUnavailable(t *testing.T) {
	_, err := NewImporter(failingStore{}, NewResolver(FallbackFirst, "")).Import(context.Background(), "alice", []Draft{{Title: "x"}})
	require.True(t, errors.Is(err, common.ErrStoreUnavailable))
}

package taskview

import (
	"testing"
	"time"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) *time.Time {
	t := time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sample() []model.Task {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return []model.Task{
		{
			ID: "1", Title: "Pagar aluguel", CategoryID: "casa", Status: model.StatusPending,
			Priority: model.PriorityHigh, Flow: model.FlowOutflow, Value: decimal.RequireFromString("1500"),
			DueDate: day(5), CreatedAt: base,
		},
		{
			ID: "2", Title: "Receber salário", CategoryID: "fin", Status: model.StatusDone,
			Priority: model.PriorityMedium, Flow: model.FlowInflow, Value: decimal.RequireFromString("4200.50"),
			DueDate: day(1), CreatedAt: base.Add(time.Hour),
		},
		{
			ID: "3", Title: "ler livro", Description: "capítulo sobre aluguel", CategoryID: "estudos",
			Status: model.StatusInProgress, Priority: model.PriorityLow, CreatedAt: base.Add(2 * time.Hour),
		},
		{
			ID: "4", Title: "Conta de luz", CategoryID: "casa", Status: model.StatusPending,
			Priority: model.PriorityHigh, Flow: model.FlowOutflow, Value: decimal.RequireFromString("89.90"),
			DueDate: day(20), CreatedAt: base.Add(3 * time.Hour),
		},
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "empty matches all", filter: Filter{}, want: []string{"1", "2", "3", "4"}},
		{name: "status", filter: Filter{Status: model.StatusPending}, want: []string{"1", "4"}},
		{name: "priority", filter: Filter{Priority: model.PriorityLow}, want: []string{"3"}},
		{name: "category", filter: Filter{CategoryID: "casa"}, want: []string{"1", "4"}},
		{name: "flow", filter: Filter{Flow: model.FlowInflow}, want: []string{"2"}},
		{name: "search title and description", filter: Filter{Search: "ALUGUEL"}, want: []string{"1", "3"}},
		{name: "due range", filter: Filter{DueAfter: day(2), DueBefore: day(10)}, want: []string{"1"}},
		{name: "due after excludes undated", filter: Filter{DueAfter: day(1)}, want: []string{"1", "2", "4"}},
		{
			name:   "combined",
			filter: Filter{CategoryID: "casa", DueBefore: day(10)},
			want:   []string{"1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(sample())))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		field      SortField
		name       string
		want       []string
		descending bool
	}{
		{name: "due ascending, undated last", field: SortByDue, want: []string{"2", "1", "4", "3"}},
		{name: "due descending, undated last", field: SortByDue, descending: true, want: []string{"4", "1", "2", "3"}},
		{name: "priority descending is stable", field: SortByPriority, descending: true, want: []string{"1", "4", "2", "3"}},
		{name: "signed value", field: SortByValue, want: []string{"1", "4", "3", "2"}},
		{name: "title ignores case", field: SortByTitle, want: []string{"4", "3", "1", "2"}},
		{name: "created descending", field: SortByCreated, descending: true, want: []string{"4", "3", "2", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := sample()
			Sort(tasks, tt.field, tt.descending)
			assert.Equal(t, tt.want, ids(tasks))
		})
	}
}

func TestParseSortField(t *testing.T) {
	assert.Equal(t, SortByDue, ParseSortField(" Due "))
	assert.Equal(t, SortByValue, ParseSortField("value"))
	assert.Equal(t, SortByCreated, ParseSortField("whatever"))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample(), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 4, s.Total)
	assert.True(t, s.Inflow.Equal(decimal.RequireFromString("4200.50")), s.Inflow.String())
	assert.True(t, s.Outflow.Equal(decimal.RequireFromString("1589.90")), s.Outflow.String())
	assert.True(t, s.Net.Equal(decimal.RequireFromString("2610.60")), s.Net.String())

	require.Contains(t, s.ByCategory, "casa")
	assert.True(t, s.ByCategory["casa"].Equal(decimal.RequireFromString("-1589.90")))
	assert.NotContains(t, s.ByCategory, "estudos")

	assert.Equal(t, 2, s.ByStatus[model.StatusPending])
	assert.Equal(t, 1, s.ByStatus[model.StatusDone])
	// Task 2 is overdue by date but already done.
	assert.Equal(t, 1, s.Overdue)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Now())
	assert.Zero(t, s.Total)
	assert.True(t, s.Net.IsZero())
}

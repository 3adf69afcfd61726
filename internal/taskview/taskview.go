// Package taskview derives filtered, sorted and summarized views of tasks.
package taskview

import (
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/shopspring/decimal"
)

// Filter selects tasks. Zero-valued fields match everything.
type Filter struct {
	DueAfter   *time.Time
	DueBefore  *time.Time
	Status     model.TaskStatus
	Priority   model.Priority
	CategoryID string
	Flow       model.FlowDirection
	Search     string
}

// Match reports whether a task passes the filter.
func (f Filter) Match(t model.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.Flow != "" && t.Flow != f.Flow {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if f.DueAfter != nil || f.DueBefore != nil {
		if t.DueDate == nil {
			return false
		}
		if f.DueAfter != nil && t.DueDate.Before(*f.DueAfter) {
			return false
		}
		if f.DueBefore != nil && t.DueDate.After(*f.DueBefore) {
			return false
		}
	}
	return true
}

// Apply returns the tasks that match, in their original order.
func (f Filter) Apply(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortField names a sortable task attribute.
type SortField string

// Sort fields.
const (
	SortByDue      SortField = "due"
	SortByPriority SortField = "priority"
	SortByCreated  SortField = "created"
	SortByValue    SortField = "value"
	SortByTitle    SortField = "title"
)

// ParseSortField maps user input to a sort field; unknown input sorts by creation.
func ParseSortField(s string) SortField {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case SortByDue:
		return SortByDue
	case SortByPriority:
		return SortByPriority
	case SortByValue:
		return SortByValue
	case SortByTitle:
		return SortByTitle
	default:
		return SortByCreated
	}
}

// Sort orders tasks in place. The sort is stable. Tasks without a due date
// sort last when ordering by due date in either direction.
func Sort(tasks []model.Task, field SortField, descending bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if field == SortByDue && (a.DueDate == nil) != (b.DueDate == nil) {
			return a.DueDate != nil
		}
		c := compare(a, b, field)
		if descending {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b model.Task, field SortField) int {
	switch field {
	case SortByDue:
		if a.DueDate == nil || b.DueDate == nil {
			return 0
		}
		return a.DueDate.Compare(*b.DueDate)
	case SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortByValue:
		return a.SignedValue().Cmp(b.SignedValue())
	case SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// Summary aggregates a set of tasks.
type Summary struct {
	Inflow     decimal.Decimal
	Outflow    decimal.Decimal
	Net        decimal.Decimal
	ByCategory map[string]decimal.Decimal
	ByStatus   map[model.TaskStatus]int
	Total      int
	Overdue    int
}

// Summarize totals financial values and counts tasks by status. Overdue
// counts open tasks whose due date is before now.
func Summarize(tasks []model.Task, now time.Time) Summary {
	s := Summary{
		ByCategory: make(map[string]decimal.Decimal),
		ByStatus:   make(map[model.TaskStatus]int),
	}
	for _, t := range tasks {
		s.Total++
		s.ByStatus[t.Status]++
		if t.Status != model.StatusDone && t.DueDate != nil && t.DueDate.Before(now) {
			s.Overdue++
		}
		if t.Value.IsZero() {
			continue
		}
		switch t.Flow {
		case model.FlowInflow:
			s.Inflow = s.Inflow.Add(t.Value)
		case model.FlowOutflow:
			s.Outflow = s.Outflow.Add(t.Value)
		}
		s.ByCategory[t.CategoryID] = s.ByCategory[t.CategoryID].Add(t.SignedValue())
	}
	s.Net = s.Inflow.Sub(s.Outflow)
	return s
}

package intake

import (
	"fmt"
	"strings"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
)

// FallbackPolicy decides what happens when a draft's category name matches nothing.
type FallbackPolicy int

// Fallback policies.
const (
	// FallbackNamed uses the named fallback category, then the first category.
	FallbackNamed FallbackPolicy = iota
	// FallbackFirst uses the first category by display order.
	FallbackFirst
	// FallbackNone reports common.ErrNotFound.
	FallbackNone
)

// Resolution describes how a draft's names were mapped to ids.
type Resolution struct {
	CategoryName        string
	SubcategoryName     string
	CategoryMatched     bool
	CategoryFellBack    bool
	SubcategoryMatched  bool
	SubcategoryRejected bool
}

// Resolver maps names to an owner's category and subcategory ids.
type Resolver struct {
	fallback string
	policy   FallbackPolicy
}

// NewResolver creates a resolver. fallback is only used with FallbackNamed.
func NewResolver(policy FallbackPolicy, fallback string) *Resolver {
	return &Resolver{policy: policy, fallback: fallback}
}

// ResolveCategory finds a category by name: exact match first, then a
// substring match in either direction, both ignoring case.
func (r *Resolver) ResolveCategory(name string, cats []model.Category) (model.Category, error) {
	key := model.NormalizeName(name)
	if key == "" {
		return model.Category{}, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}

	sorted := append([]model.Category(nil), cats...)
	model.SortCategories(sorted)
	for _, c := range sorted {
		if model.NormalizeName(c.Name) == key {
			return c, nil
		}
	}
	for _, c := range sorted {
		candidate := model.NormalizeName(c.Name)
		if strings.Contains(candidate, key) || strings.Contains(key, candidate) {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
}

// ResolveSubcategory finds a subcategory by name, only among children of categoryID.
func (r *Resolver) ResolveSubcategory(name, categoryID string, subs []model.Subcategory) (model.Subcategory, error) {
	key := model.NormalizeName(name)
	var children []model.Subcategory
	for _, s := range subs {
		if s.CategoryID == categoryID {
			children = append(children, s)
		}
	}
	model.SortSubcategories(children)

	if key != "" {
		for _, s := range children {
			if model.NormalizeName(s.Name) == key {
				return s, nil
			}
		}
		for _, s := range children {
			candidate := model.NormalizeName(s.Name)
			if strings.Contains(candidate, key) || strings.Contains(key, candidate) {
				return s, nil
			}
		}
	}
	return model.Subcategory{}, fmt.Errorf("subcategory %q: %w", name, common.ErrNotFound)
}

func (r *Resolver) fallbackCategory(cats []model.Category) (model.Category, error) {
	if len(cats) == 0 || r.policy == FallbackNone {
		return model.Category{}, fmt.Errorf("no fallback category: %w", common.ErrNotFound)
	}
	if r.policy == FallbackNamed && r.fallback != "" {
		key := model.NormalizeName(r.fallback)
		for _, c := range cats {
			if model.NormalizeName(c.Name) == key {
				return c, nil
			}
		}
	}
	sorted := append([]model.Category(nil), cats...)
	model.SortCategories(sorted)
	return sorted[0], nil
}

// Resolve builds a task for owner from a draft. The task is not stored.
func (r *Resolver) Resolve(owner string, draft Draft, cats []model.Category, subs []model.Subcategory) (model.Task, Resolution, error) {
	var res Resolution

	category, err := r.ResolveCategory(draft.Category, cats)
	switch {
	case err == nil:
		res.CategoryMatched = true
	default:
		category, err = r.fallbackCategory(cats)
		if err != nil {
			return model.Task{}, res, fmt.Errorf("resolve %q: %w", draft.Title, err)
		}
		res.CategoryFellBack = true
	}
	res.CategoryName = category.Name

	var subcategoryID string
	if strings.TrimSpace(draft.Subcategory) != "" {
		sub, err := r.ResolveSubcategory(draft.Subcategory, category.ID, subs)
		if err == nil {
			subcategoryID = sub.ID
			res.SubcategoryName = sub.Name
			res.SubcategoryMatched = true
		} else {
			res.SubcategoryRejected = true
		}
	}

	due, err := draft.Due()
	if err != nil {
		return model.Task{}, res, err
	}
	flow, err := parseFlow(draft.Flow)
	if err != nil {
		return model.Task{}, res, err
	}

	task := model.Task{
		Owner:         owner,
		Title:         strings.TrimSpace(draft.Title),
		Description:   strings.TrimSpace(draft.Description),
		CategoryID:    category.ID,
		SubcategoryID: subcategoryID,
		DueDate:       due,
		Priority:      parsePriority(draft.Priority),
		Status:        model.StatusPending,
		Flow:          flow,
		Recurrence:    parseRecurrence(draft.Recurrence),
	}
	if draft.Value.Valid {
		task.Value = draft.Value.Decimal.Abs()
		task.Type = model.TypeFinancial
		if task.Flow == model.FlowNone {
			task.Flow = model.FlowOutflow
		}
	}
	return task, res, nil
}

func parsePriority(s string) model.Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "alta":
		return model.PriorityHigh
	case "low", "baixa":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

func parseFlow(s string) (model.FlowDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return model.FlowNone, nil
	case "inflow", "income", "entrada":
		return model.FlowInflow, nil
	case "outflow", "expense", "saida", "saída":
		return model.FlowOutflow, nil
	default:
		return model.FlowNone, fmt.Errorf("%w: unknown flow %q", ErrInvalidDraft, s)
	}
}

func parseRecurrence(s string) model.Recurrence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "semanal":
		return model.RecurrenceWeekly
	case "monthly", "mensal":
		return model.RecurrenceMonthly
	case "yearly", "anual":
		return model.RecurrenceYearly
	default:
		return model.RecurrenceNone
	}
}

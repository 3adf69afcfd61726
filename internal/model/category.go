package model

import (
	"sort"
	"strings"
	"time"
)

// CategoryKind indicates whether a category comes from the system catalog or the user.
type CategoryKind string

const (
	// CategoryKindSystem marks categories seeded from the system catalog.
	CategoryKindSystem CategoryKind = "system"
	// CategoryKindCustom marks categories created by the user.
	CategoryKindCustom CategoryKind = "custom"
)

// Valid reports whether k is a known kind.
func (k CategoryKind) Valid() bool {
	return k == CategoryKindSystem || k == CategoryKindCustom
}

// Category is a user-scoped taxonomy node used to classify tasks.
type Category struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	Owner       string
	Name        string
	Kind        CategoryKind
	Icon        string
	Color       string
	Description string
	Order       int
	Pinned      bool
	Active      bool
}

// IsProtected reports whether the category may not be deleted through the accessor.
func (c Category) IsProtected() bool {
	return c.Kind == CategoryKindSystem
}

// CategoryFields holds the values used to create a category.
type CategoryFields struct {
	Name        string
	Kind        CategoryKind
	Icon        string
	Color       string
	Description string
	Order       int
	Pinned      bool
	Active      bool
}

// CategoryPatch is a partial update. Nil fields are left unchanged.
type CategoryPatch struct {
	Name        *string
	Kind        *CategoryKind
	Icon        *string
	Color       *string
	Description *string
	Order       *int
	Pinned      *bool
	Active      *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p CategoryPatch) IsEmpty() bool {
	return p.Name == nil && p.Kind == nil && p.Icon == nil && p.Color == nil &&
		p.Description == nil && p.Order == nil && p.Pinned == nil && p.Active == nil
}

// Apply returns a copy of c with the patch applied.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Kind != nil {
		c.Kind = *p.Kind
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Order != nil {
		c.Order = *p.Order
	}
	if p.Pinned != nil {
		c.Pinned = *p.Pinned
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	return c
}

// Subcategory nests under exactly one category.
type Subcategory struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	Owner       string
	CategoryID  string
	Name        string
	Icon        string
	Color       string
	Description string
	Order       int
	Pinned      bool
	Active      bool
}

// IsProtected reports whether the subcategory may not be deleted through the accessor.
func (s Subcategory) IsProtected() bool {
	return s.Pinned
}

// SubcategoryFields holds the values used to create a subcategory.
type SubcategoryFields struct {
	Name        string
	Icon        string
	Color       string
	Description string
	Order       int
	Pinned      bool
	Active      bool
}

// SubcategoryPatch is a partial update. Nil fields are left unchanged.
type SubcategoryPatch struct {
	CategoryID  *string
	Name        *string
	Icon        *string
	Color       *string
	Description *string
	Order       *int
	Pinned      *bool
	Active      *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p SubcategoryPatch) IsEmpty() bool {
	return p.CategoryID == nil && p.Name == nil && p.Icon == nil && p.Color == nil &&
		p.Description == nil && p.Order == nil && p.Pinned == nil && p.Active == nil
}

// Apply returns a copy of s with the patch applied.
func (p SubcategoryPatch) Apply(s Subcategory) Subcategory {
	if p.CategoryID != nil {
		s.CategoryID = *p.CategoryID
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Icon != nil {
		s.Icon = *p.Icon
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Order != nil {
		s.Order = *p.Order
	}
	if p.Pinned != nil {
		s.Pinned = *p.Pinned
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	return s
}

// NormalizeName folds a category or subcategory name for case-insensitive comparison.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SortCategories orders categories by Order, then creation time, then ID.
// Stores make no ordering promise, so callers sort here.
func SortCategories(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		return lessByOrder(cats[i].Order, cats[j].Order, cats[i].CreatedAt, cats[j].CreatedAt, cats[i].ID, cats[j].ID)
	})
}

// SortSubcategories orders subcategories by Order, then creation time, then ID.
func SortSubcategories(subs []Subcategory) {
	sort.SliceStable(subs, func(i, j int) bool {
		return lessByOrder(subs[i].Order, subs[j].Order, subs[i].CreatedAt, subs[j].CreatedAt, subs[i].ID, subs[j].ID)
	})
}

func lessByOrder(oi, oj int, ci, cj time.Time, idi, idj string) bool {
	if oi != oj {
		return oi < oj
	}
	if !ci.Equal(cj) {
		return ci.Before(cj)
	}
	return idi < idj
}

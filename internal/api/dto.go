package api

import (
	"time"

	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/shopspring/decimal"
)

type categoryDTO struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	Pinned      bool      `json:"pinned"`
	Active      bool      `json:"active"`
}

func toCategoryDTO(c model.Category) categoryDTO {
	return categoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Kind:        string(c.Kind),
		Icon:        c.Icon,
		Color:       c.Color,
		Description: c.Description,
		Order:       c.Order,
		Pinned:      c.Pinned,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type subcategoryDTO struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	Pinned      bool      `json:"pinned"`
	Active      bool      `json:"active"`
}

func toSubcategoryDTO(s model.Subcategory) subcategoryDTO {
	return subcategoryDTO{
		ID:          s.ID,
		CategoryID:  s.CategoryID,
		Name:        s.Name,
		Icon:        s.Icon,
		Color:       s.Color,
		Description: s.Description,
		Order:       s.Order,
		Pinned:      s.Pinned,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type taskDTO struct {
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Value         decimal.Decimal `json:"value"`
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	CategoryID    string          `json:"category_id"`
	SubcategoryID string          `json:"subcategory_id,omitempty"`
	Priority      string          `json:"priority,omitempty"`
	Status        string          `json:"status"`
	Type          string          `json:"type"`
	Flow          string          `json:"flow,omitempty"`
	Recurrence    string          `json:"recurrence,omitempty"`
	ShareToken    string          `json:"share_token,omitempty"`
	Installments  int             `json:"installments,omitempty"`
}

func toTaskDTO(t model.Task) taskDTO {
	return taskDTO{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		CategoryID:    t.CategoryID,
		SubcategoryID: t.SubcategoryID,
		DueDate:       t.DueDate,
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		Type:          string(t.Type),
		Value:         t.Value,
		Flow:          string(t.Flow),
		Recurrence:    string(t.Recurrence),
		Installments:  t.Installments,
		ShareToken:    t.ShareToken,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// publicTaskDTO is the redacted view served to anyone holding a share token.
type publicTaskDTO struct {
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Value       decimal.Decimal `json:"value"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Subcategory string          `json:"subcategory,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Status      string          `json:"status"`
	Flow        string          `json:"flow,omitempty"`
}

type taskRequest struct {
	DueDate       *time.Time          `json:"due_date"`
	Value         *decimal.Decimal    `json:"value"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	CategoryID    string              `json:"category_id"`
	SubcategoryID string              `json:"subcategory_id"`
	Priority      model.Priority      `json:"priority"`
	Status        model.TaskStatus    `json:"status"`
	Flow          model.FlowDirection `json:"flow"`
	Recurrence    model.Recurrence    `json:"recurrence"`
	Installments  int                 `json:"installments"`
}

func (req taskRequest) apply(t *model.Task) {
	t.Title = req.Title
	t.Description = req.Description
	t.CategoryID = req.CategoryID
	t.SubcategoryID = req.SubcategoryID
	t.DueDate = req.DueDate
	t.Priority = req.Priority
	t.Status = req.Status
	t.Flow = req.Flow
	t.Recurrence = req.Recurrence
	t.Installments = req.Installments
	t.Value = decimal.Zero
	if req.Value != nil {
		t.Value = *req.Value
	}
}

type categoryRequest struct {
	Name        *string `json:"name"`
	Kind        *string `json:"kind"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
	Active      *bool   `json:"active"`
}

func (req categoryRequest) patch() model.CategoryPatch {
	p := model.CategoryPatch{
		Name:        req.Name,
		Icon:        req.Icon,
		Color:       req.Color,
		Description: req.Description,
		Order:       req.Order,
		Active:      req.Active,
	}
	if req.Kind != nil {
		kind := model.CategoryKind(*req.Kind)
		p.Kind = &kind
	}
	return p
}

func (req categoryRequest) fields() model.CategoryFields {
	f := model.CategoryFields{Kind: model.CategoryKindCustom, Active: true}
	if req.Name != nil {
		f.Name = *req.Name
	}
	if req.Icon != nil {
		f.Icon = *req.Icon
	}
	if req.Color != nil {
		f.Color = *req.Color
	}
	if req.Description != nil {
		f.Description = *req.Description
	}
	if req.Order != nil {
		f.Order = *req.Order
	}
	if req.Active != nil {
		f.Active = *req.Active
	}
	return f
}

type subcategoryRequest struct {
	CategoryID  *string `json:"category_id"`
	Name        *string `json:"name"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
	Pinned      *bool   `json:"pinned"`
	Active      *bool   `json:"active"`
}

func (req subcategoryRequest) patch() model.SubcategoryPatch {
	return model.SubcategoryPatch{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Icon:        req.Icon,
		Color:       req.Color,
		Description: req.Description,
		Order:       req.Order,
		Pinned:      req.Pinned,
		Active:      req.Active,
	}
}

func (req subcategoryRequest) fields() model.SubcategoryFields {
	f := model.SubcategoryFields{Active: true}
	if req.Name != nil {
		f.Name = *req.Name
	}
	if req.Icon != nil {
		f.Icon = *req.Icon
	}
	if req.Color != nil {
		f.Color = *req.Color
	}
	if req.Description != nil {
		f.Description = *req.Description
	}
	if req.Order != nil {
		f.Order = *req.Order
	}
	if req.Active != nil {
		f.Active = *req.Active
	}
	return f
}

type repairReportDTO struct {
	Changes    []engine.LinkChange `json:"changes"`
	Scanned    int                 `json:"scanned"`
	Updated    int                 `json:"updated"`
	Unresolved int                 `json:"unresolved"`
}

func toRepairDTO(r *engine.RepairReport) *repairReportDTO {
	if r == nil {
		return nil
	}
	changes := r.Changes
	if changes == nil {
		changes = []engine.LinkChange{}
	}
	return &repairReportDTO{Changes: changes, Scanned: r.Scanned, Updated: r.Updated, Unresolved: r.Unresolved}
}

type seedReportDTO struct {
	Repair               *repairReportDTO `json:"repair,omitempty"`
	CatalogVersion       string           `json:"catalog_version"`
	CategoriesCreated    int              `json:"categories_created"`
	CategoriesUpdated    int              `json:"categories_updated"`
	SubcategoriesCreated int              `json:"subcategories_created"`
	SubcategoriesUpdated int              `json:"subcategories_updated"`
}

func toSeedDTO(r *engine.SeedReport) *seedReportDTO {
	if r == nil {
		return nil
	}
	return &seedReportDTO{
		Repair:               toRepairDTO(r.Repair),
		CatalogVersion:       r.CatalogVersion,
		CategoriesCreated:    r.CategoriesCreated,
		CategoriesUpdated:    r.CategoriesUpdated,
		SubcategoriesCreated: r.SubcategoriesCreated,
		SubcategoriesUpdated: r.SubcategoriesUpdated,
	}
}

type dedupReportDTO struct {
	Repair               *repairReportDTO `json:"repair,omitempty"`
	CategoriesRemoved    int              `json:"categories_removed"`
	CategoriesPromoted   int              `json:"categories_promoted"`
	SubcategoriesRemoved int              `json:"subcategories_removed"`
	SubcategoriesMoved   int              `json:"subcategories_moved"`
	SubcategoriesPinned  int              `json:"subcategories_pinned"`
}

func toDedupDTO(r *engine.DedupReport) *dedupReportDTO {
	if r == nil {
		return nil
	}
	return &dedupReportDTO{
		Repair:               toRepairDTO(r.Repair),
		CategoriesRemoved:    r.CategoriesRemoved,
		CategoriesPromoted:   r.CategoriesPromoted,
		SubcategoriesRemoved: r.SubcategoriesRemoved,
		SubcategoriesMoved:   r.SubcategoriesMoved,
		SubcategoriesPinned:  r.SubcategoriesPinned,
	}
}

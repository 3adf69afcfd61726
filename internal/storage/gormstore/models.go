package gormstore

import (
	"time"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/shopspring/decimal"
)

// CategoryModel represents the categories table.
type CategoryModel struct {
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Owner       string    `gorm:"type:varchar(128);not null;index"`
	Name        string    `gorm:"type:varchar(120);not null"`
	Kind        string    `gorm:"type:varchar(10);not null;default:custom"`
	Icon        string    `gorm:"type:varchar(50)"`
	Color       string    `gorm:"type:varchar(16)"`
	Description string    `gorm:"type:text"`
	SortOrder   int       `gorm:"not null;default:0"`
	Pinned      bool      `gorm:"not null;default:false"`
	Active      bool      `gorm:"not null"`
}

// TableName returns the table name for the CategoryModel.
func (CategoryModel) TableName() string {
	return "categories"
}

func (m *CategoryModel) toModel() model.Category {
	return model.Category{
		ID:          m.ID,
		Owner:       m.Owner,
		Name:        m.Name,
		Kind:        model.CategoryKind(m.Kind),
		Icon:        m.Icon,
		Color:       m.Color,
		Description: m.Description,
		Order:       m.SortOrder,
		Pinned:      m.Pinned,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func categoryFromModel(c model.Category) *CategoryModel {
	return &CategoryModel{
		ID:          c.ID,
		Owner:       c.Owner,
		Name:        c.Name,
		Kind:        string(c.Kind),
		Icon:        c.Icon,
		Color:       c.Color,
		Description: c.Description,
		SortOrder:   c.Order,
		Pinned:      c.Pinned,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// SubcategoryModel represents the subcategories table.
type SubcategoryModel struct {
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Owner       string    `gorm:"type:varchar(128);not null;index"`
	CategoryID  string    `gorm:"type:varchar(36);not null;index"`
	Name        string    `gorm:"type:varchar(120);not null"`
	Icon        string    `gorm:"type:varchar(50)"`
	Color       string    `gorm:"type:varchar(16)"`
	Description string    `gorm:"type:text"`
	SortOrder   int       `gorm:"not null;default:0"`
	Pinned      bool      `gorm:"not null;default:false"`
	Active      bool      `gorm:"not null"`
}

// TableName returns the table name for the SubcategoryModel.
func (SubcategoryModel) TableName() string {
	return "subcategories"
}

func (m *SubcategoryModel) toModel() model.Subcategory {
	return model.Subcategory{
		ID:          m.ID,
		Owner:       m.Owner,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Icon:        m.Icon,
		Color:       m.Color,
		Description: m.Description,
		Order:       m.SortOrder,
		Pinned:      m.Pinned,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func subcategoryFromModel(s model.Subcategory) *SubcategoryModel {
	return &SubcategoryModel{
		ID:          s.ID,
		Owner:       s.Owner,
		CategoryID:  s.CategoryID,
		Name:        s.Name,
		Icon:        s.Icon,
		Color:       s.Color,
		Description: s.Description,
		SortOrder:   s.Order,
		Pinned:      s.Pinned,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// TaskModel represents the tasks table.
type TaskModel struct {
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
	DueDate       *time.Time
	SubcategoryID *string         `gorm:"type:varchar(36)"`
	ShareToken    *string         `gorm:"type:varchar(64);uniqueIndex"`
	Value         decimal.Decimal `gorm:"type:text;not null;default:'0'"`
	ID            string          `gorm:"type:varchar(36);primaryKey"`
	Owner         string          `gorm:"type:varchar(128);not null;index"`
	Title         string          `gorm:"type:varchar(255);not null"`
	Description   string          `gorm:"type:text"`
	CategoryID    string          `gorm:"type:varchar(36);not null;index"`
	Priority      string          `gorm:"type:varchar(10)"`
	Status        string          `gorm:"type:varchar(20);not null;default:pending"`
	TaskType      string          `gorm:"type:varchar(20);not null;default:task"`
	Flow          string          `gorm:"type:varchar(10)"`
	Recurrence    string          `gorm:"type:varchar(10)"`
	Installments  int             `gorm:"not null;default:0"`
}

// TableName returns the table name for the TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

func (m *TaskModel) toModel() model.Task {
	t := model.Task{
		ID:           m.ID,
		Owner:        m.Owner,
		Title:        m.Title,
		Description:  m.Description,
		CategoryID:   m.CategoryID,
		DueDate:      m.DueDate,
		Value:        m.Value,
		Priority:     model.Priority(m.Priority),
		Status:       model.TaskStatus(m.Status),
		Type:         model.TaskType(m.TaskType),
		Flow:         model.FlowDirection(m.Flow),
		Recurrence:   model.Recurrence(m.Recurrence),
		Installments: m.Installments,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.SubcategoryID != nil {
		t.SubcategoryID = *m.SubcategoryID
	}
	if m.ShareToken != nil {
		t.ShareToken = *m.ShareToken
	}
	return t
}

func taskFromModel(t *model.Task) *TaskModel {
	return &TaskModel{
		ID:            t.ID,
		Owner:         t.Owner,
		Title:         t.Title,
		Description:   t.Description,
		CategoryID:    t.CategoryID,
		SubcategoryID: optional(t.SubcategoryID),
		ShareToken:    optional(t.ShareToken),
		DueDate:       t.DueDate,
		Value:         t.Value,
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		TaskType:      string(t.Type),
		Flow:          string(t.Flow),
		Recurrence:    string(t.Recurrence),
		Installments:  t.Installments,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// CatalogSyncModel represents the catalog_syncs audit table.
type CatalogSyncModel struct {
	AppliedAt            time.Time `gorm:"not null"`
	Owner                string    `gorm:"type:varchar(128);not null;index:idx_catalog_syncs_owner"`
	CatalogVersion       string    `gorm:"type:varchar(64);not null"`
	ID                   uint      `gorm:"primaryKey"`
	CategoriesCreated    int
	CategoriesUpdated    int
	SubcategoriesCreated int
	SubcategoriesUpdated int
}

// TableName returns the table name for the CatalogSyncModel.
func (CatalogSyncModel) TableName() string {
	return "catalog_syncs"
}

func (m *CatalogSyncModel) toModel() model.CatalogSync {
	return model.CatalogSync{
		AppliedAt:            m.AppliedAt,
		Owner:                m.Owner,
		CatalogVersion:       m.CatalogVersion,
		CategoriesCreated:    m.CategoriesCreated,
		CategoriesUpdated:    m.CategoriesUpdated,
		SubcategoriesCreated: m.SubcategoriesCreated,
		SubcategoriesUpdated: m.SubcategoriesUpdated,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package gormstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/storage"
	"gorm.io/gorm"
)

func findSubcategories(ctx context.Context, db *gorm.DB, column, value string) ([]model.Subcategory, error) {
	var rows []SubcategoryModel
	if err := db.WithContext(ctx).Where(column+" = ?", value).Find(&rows).Error; err != nil {
		return nil, common.Unavailable("failed to query subcategories", err)
	}
	subs := make([]model.Subcategory, 0, len(rows))
	for i := range rows {
		subs = append(subs, rows[i].toModel())
	}
	model.SortSubcategories(subs)
	return subs, nil
}

func getSubcategory(ctx context.Context, db *gorm.DB, id string) (*model.Subcategory, error) {
	var row SubcategoryModel
	if err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, common.Unavailable("failed to query subcategory", notFound(err, "subcategory", id))
	}
	sub := row.toModel()
	return &sub, nil
}

// ListSubcategories returns a category's subcategories sorted by order.
func (s *Store) ListSubcategories(ctx context.Context, categoryID string) ([]model.Subcategory, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(categoryID, "categoryID"); err != nil {
		return nil, err
	}
	return findSubcategories(ctx, s.db, "category_id", categoryID)
}

// ListOwnerSubcategories returns every subcategory owned by owner.
func (s *Store) ListOwnerSubcategories(ctx context.Context, owner string) ([]model.Subcategory, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(owner, "owner"); err != nil {
		return nil, err
	}
	return findSubcategories(ctx, s.db, "owner", owner)
}

// GetSubcategory returns a subcategory by id.
func (s *Store) GetSubcategory(ctx context.Context, id string) (*model.Subcategory, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return nil, err
	}
	return getSubcategory(ctx, s.db, id)
}

func newSubcategory(id, owner, categoryID string, fields model.SubcategoryFields, now time.Time) model.Subcategory {
	return model.Subcategory{
		ID:          id,
		Owner:       owner,
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(fields.Name),
		Icon:        fields.Icon,
		Color:       fields.Color,
		Description: fields.Description,
		Order:       fields.Order,
		Pinned:      fields.Pinned,
		Active:      fields.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateSubcategory creates a subcategory under an existing category of the same owner.
func (s *Store) CreateSubcategory(ctx context.Context, owner, categoryID string, fields model.SubcategoryFields) (*model.Subcategory, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateSubcategoryFields(owner, categoryID, fields); err != nil {
		return nil, err
	}

	sub := newSubcategory(s.newID(), owner, categoryID, fields, s.now().UTC())

	err := s.write(ctx, "failed to create subcategory", func(tx *gorm.DB) error {
		parent, err := getCategory(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		if parent.Owner != owner {
			return fmt.Errorf("category %s: %w", categoryID, common.ErrNotFound)
		}
		siblings, err := findSubcategories(ctx, tx, "category_id", categoryID)
		if err != nil {
			return err
		}
		if err := storage.CheckSubcategoryNameFree(siblings, sub.Name, ""); err != nil {
			return err
		}
		return tx.Create(subcategoryFromModel(sub)).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created new subcategory", "owner", owner, "category_id", categoryID, "name", sub.Name, "id", sub.ID)
	return &sub, nil
}

// UpdateSubcategory applies a partial update, including moves between categories.
func (s *Store) UpdateSubcategory(ctx context.Context, id string, patch model.SubcategoryPatch) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	return s.write(ctx, "failed to update subcategory", func(tx *gorm.DB) error {
		current, err := getSubcategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := storage.CheckSubcategoryUnpin(*current, patch); err != nil {
			return err
		}
		updated := patch.Apply(*current)
		if updated.CategoryID != current.CategoryID {
			parent, err := getCategory(ctx, tx, updated.CategoryID)
			if err != nil {
				return err
			}
			if parent.Owner != current.Owner {
				return fmt.Errorf("category %s: %w", updated.CategoryID, common.ErrNotFound)
			}
		}
		if patch.Name != nil || patch.CategoryID != nil {
			if err := storage.ValidateString(updated.Name, "name"); err != nil {
				return err
			}
			siblings, err := findSubcategories(ctx, tx, "category_id", updated.CategoryID)
			if err != nil {
				return err
			}
			if err := storage.CheckSubcategoryNameFree(siblings, updated.Name, id); err != nil {
				return err
			}
			updated.Name = strings.TrimSpace(updated.Name)
		}
		return tx.Save(subcategoryFromModel(updated)).Error
	})
}

// DeleteSubcategory removes an unpinned subcategory.
func (s *Store) DeleteSubcategory(ctx context.Context, id string) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to delete subcategory", func(tx *gorm.DB) error {
		current, err := getSubcategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := storage.CheckSubcategoryDeletable(*current); err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&SubcategoryModel{}).Error
	})
}

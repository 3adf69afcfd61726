package gormstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/storage"
	"gorm.io/gorm"
)

func listCategories(ctx context.Context, db *gorm.DB, owner string) ([]model.Category, error) {
	var rows []CategoryModel
	if err := db.WithContext(ctx).Where("owner = ?", owner).Find(&rows).Error; err != nil {
		return nil, common.Unavailable("failed to query categories", err)
	}
	cats := make([]model.Category, 0, len(rows))
	for i := range rows {
		cats = append(cats, rows[i].toModel())
	}
	model.SortCategories(cats)
	return cats, nil
}

func getCategory(ctx context.Context, db *gorm.DB, id string) (*model.Category, error) {
	var row CategoryModel
	if err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, common.Unavailable("failed to query category", notFound(err, "category", id))
	}
	c := row.toModel()
	return &c, nil
}

// ListCategories returns all of an owner's categories sorted by order.
func (s *Store) ListCategories(ctx context.Context, owner string) ([]model.Category, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(owner, "owner"); err != nil {
		return nil, err
	}
	return listCategories(ctx, s.db, owner)
}

// GetCategory returns a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return nil, err
	}
	return getCategory(ctx, s.db, id)
}

// CreateCategory creates a category; names are unique per owner ignoring case.
func (s *Store) CreateCategory(ctx context.Context, owner string, fields model.CategoryFields) (*model.Category, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateCategoryFields(owner, fields); err != nil {
		return nil, err
	}
	fields = storage.NormalizeCategoryFields(fields)

	now := s.now().UTC()
	c := model.Category{
		ID:          s.newID(),
		Owner:       owner,
		Name:        fields.Name,
		Kind:        fields.Kind,
		Icon:        fields.Icon,
		Color:       fields.Color,
		Description: fields.Description,
		Order:       fields.Order,
		Pinned:      fields.Pinned,
		Active:      fields.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.write(ctx, "failed to create category", func(tx *gorm.DB) error {
		existing, err := listCategories(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := storage.CheckCategoryNameFree(existing, c.Name, ""); err != nil {
			return err
		}
		return tx.Create(categoryFromModel(c)).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created new category", "owner", owner, "name", c.Name, "id", c.ID)
	return &c, nil
}

// UpdateCategory applies a partial update. Changing the kind is rejected.
func (s *Store) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	return s.write(ctx, "failed to update category", func(tx *gorm.DB) error {
		current, err := getCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := storage.CheckKindChange(*current, patch); err != nil {
			return err
		}
		if err := storage.CheckCategoryUnpin(*current, patch); err != nil {
			return err
		}
		if patch.Name != nil {
			if err := storage.ValidateString(*patch.Name, "name"); err != nil {
				return err
			}
			existing, err := listCategories(ctx, tx, current.Owner)
			if err != nil {
				return err
			}
			if err := storage.CheckCategoryNameFree(existing, *patch.Name, id); err != nil {
				return err
			}
			trimmed := strings.TrimSpace(*patch.Name)
			patch.Name = &trimmed
		}
		return tx.Save(categoryFromModel(patch.Apply(*current))).Error
	})
}

// DeleteCategory removes a custom category and its subcategories.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to delete category", func(tx *gorm.DB) error {
		current, err := getCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := storage.CheckCategoryDeletable(*current); err != nil {
			return err
		}
		children, err := findSubcategories(ctx, tx, "category_id", id)
		if err != nil {
			return err
		}
		if err := storage.CheckChildrenDeletable(*current, children); err != nil {
			return err
		}
		return removeCategory(tx, id)
	})
}

func removeCategory(tx *gorm.DB, id string) error {
	if err := tx.Where("category_id = ?", id).Delete(&SubcategoryModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete subcategories: %w", err)
	}
	if err := tx.Where("id = ?", id).Delete(&CategoryModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
)

const categoryColumns = `id, owner, name, kind, pinned, icon, color, description, sort_order, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (model.Category, error) {
	var (
		cat                  model.Category
		kind                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&cat.ID, &cat.Owner, &cat.Name, &kind, &cat.Pinned, &cat.Icon, &cat.Color,
		&cat.Description, &cat.Order, &cat.Active, &createdAt, &updatedAt); err != nil {
		return cat, err
	}
	cat.Kind = model.CategoryKind(kind)

	var err error
	if cat.CreatedAt, err = parseTime(createdAt); err != nil {
		return cat, err
	}
	if cat.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return cat, err
	}
	return cat, nil
}

// ListCategories returns all of an owner's categories sorted by order.
func (s *SQLiteStorage) ListCategories(ctx context.Context, owner string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	categories, err := listCategories(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved categories", "owner", owner, "count", len(categories))
	return categories, nil
}

func listCategories(ctx context.Context, q queryable, owner string) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE owner = ?`, owner)
	if err != nil {
		return nil, common.Unavailable("failed to query categories", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, common.Unavailable("failed to scan category", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Unavailable("error iterating categories", err)
	}

	model.SortCategories(categories)
	return categories, nil
}

// GetCategory returns a category by id.
func (s *SQLiteStorage) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getCategory(ctx, s.db, id)
}

func getCategory(ctx context.Context, q queryable, id string) (*model.Category, error) {
	cat, err := scanCategory(q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.Unavailable("failed to query category", err)
	}
	return &cat, nil
}

// CreateCategory creates a new category. Names must be unique per owner, ignoring case.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, owner string, fields model.CategoryFields) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := ValidateCategoryFields(owner, fields); err != nil {
		return nil, err
	}
	fields = NormalizeCategoryFields(fields)

	now := s.now()
	category := model.Category{
		ID:          s.newID(),
		Owner:       owner,
		Name:        fields.Name,
		Kind:        fields.Kind,
		Pinned:      fields.Pinned,
		Icon:        fields.Icon,
		Color:       fields.Color,
		Description: fields.Description,
		Order:       fields.Order,
		Active:      fields.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.write(ctx, "failed to create category", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			existing, err := listCategories(ctx, tx, owner)
			if err != nil {
				return err
			}
			if err := CheckCategoryNameFree(existing, category.Name, ""); err != nil {
				return err
			}
			return insertCategory(ctx, tx, category)
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created new category", "owner", owner, "name", category.Name, "id", category.ID)
	return &category, nil
}

func insertCategory(ctx context.Context, q queryable, c model.Category) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Owner, c.Name, string(c.Kind), boolToInt(c.Pinned), c.Icon, c.Color, c.Description,
		c.Order, boolToInt(c.Active), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	return err
}

func saveCategory(ctx context.Context, q queryable, c model.Category) error {
	_, err := q.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, kind = ?, pinned = ?, icon = ?, color = ?, description = ?,
		    sort_order = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, string(c.Kind), boolToInt(c.Pinned), c.Icon, c.Color, c.Description,
		c.Order, boolToInt(c.Active), formatTime(c.UpdatedAt), c.ID)
	return err
}

// UpdateCategory applies a partial update. Changing the kind is rejected.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	return s.write(ctx, "failed to update category", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			current, err := getCategory(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := CheckKindChange(*current, patch); err != nil {
				return err
			}
			if err := CheckCategoryUnpin(*current, patch); err != nil {
				return err
			}
			if patch.Name != nil {
				if err := validateString(*patch.Name, "name"); err != nil {
					return err
				}
				existing, err := listCategories(ctx, tx, current.Owner)
				if err != nil {
					return err
				}
				if err := CheckCategoryNameFree(existing, *patch.Name, id); err != nil {
					return err
				}
				trimmed := strings.TrimSpace(*patch.Name)
				patch.Name = &trimmed
			}

			updated := patch.Apply(*current)
			updated.UpdatedAt = s.now()
			return saveCategory(ctx, tx, updated)
		})
	})
}

// DeleteCategory removes a custom category and its subcategories.
// System categories, and categories holding pinned subcategories, are protected.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to delete category", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			current, err := getCategory(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := CheckCategoryDeletable(*current); err != nil {
				return err
			}
			children, err := querySubcategories(ctx, tx, "category_id", id)
			if err != nil {
				return err
			}
			if err := CheckChildrenDeletable(*current, children); err != nil {
				return err
			}
			return removeCategory(ctx, tx, id)
		})
	})
}

func removeCategory(ctx context.Context, q queryable, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM subcategories WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete subcategories: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

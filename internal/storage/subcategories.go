package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
)

const subcategoryColumns = `id, owner, category_id, name, pinned, icon, color, description, sort_order, is_active, created_at, updated_at`

func scanSubcategory(row rowScanner) (model.Subcategory, error) {
	var (
		sub                  model.Subcategory
		createdAt, updatedAt string
	)
	if err := row.Scan(&sub.ID, &sub.Owner, &sub.CategoryID, &sub.Name, &sub.Pinned, &sub.Icon, &sub.Color,
		&sub.Description, &sub.Order, &sub.Active, &createdAt, &updatedAt); err != nil {
		return sub, err
	}

	var err error
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return sub, err
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return sub, err
	}
	return sub, nil
}

func querySubcategories(ctx context.Context, q queryable, where string, arg string) ([]model.Subcategory, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+subcategoryColumns+` FROM subcategories WHERE `+where+` = ?`, arg)
	if err != nil {
		return nil, common.Unavailable("failed to query subcategories", err)
	}
	defer rows.Close()

	var subs []model.Subcategory
	for rows.Next() {
		sub, err := scanSubcategory(rows)
		if err != nil {
			return nil, common.Unavailable("failed to scan subcategory", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Unavailable("error iterating subcategories", err)
	}

	model.SortSubcategories(subs)
	return subs, nil
}

// ListSubcategories returns the subcategories of one category sorted by order.
func (s *SQLiteStorage) ListSubcategories(ctx context.Context, categoryID string) ([]model.Subcategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return nil, err
	}
	return querySubcategories(ctx, s.db, "category_id", categoryID)
}

// ListOwnerSubcategories returns every subcategory owned by owner.
func (s *SQLiteStorage) ListOwnerSubcategories(ctx context.Context, owner string) ([]model.Subcategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}
	return querySubcategories(ctx, s.db, "owner", owner)
}

// GetSubcategory returns a subcategory by id.
func (s *SQLiteStorage) GetSubcategory(ctx context.Context, id string) (*model.Subcategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getSubcategory(ctx, s.db, id)
}

func getSubcategory(ctx context.Context, q queryable, id string) (*model.Subcategory, error) {
	sub, err := scanSubcategory(q.QueryRowContext(ctx, `SELECT `+subcategoryColumns+` FROM subcategories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subcategory %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.Unavailable("failed to query subcategory", err)
	}
	return &sub, nil
}

// CreateSubcategory creates a subcategory under an existing category.
func (s *SQLiteStorage) CreateSubcategory(ctx context.Context, owner, categoryID string, fields model.SubcategoryFields) (*model.Subcategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := ValidateSubcategoryFields(owner, categoryID, fields); err != nil {
		return nil, err
	}

	now := s.now()
	sub := newSubcategory(s.newID(), owner, categoryID, fields, now)

	err := s.write(ctx, "failed to create subcategory", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			parent, err := getCategory(ctx, tx, categoryID)
			if err != nil {
				return err
			}
			if parent.Owner != owner {
				return fmt.Errorf("category %s: %w", categoryID, common.ErrNotFound)
			}
			siblings, err := querySubcategories(ctx, tx, "category_id", categoryID)
			if err != nil {
				return err
			}
			if err := CheckSubcategoryNameFree(siblings, sub.Name, ""); err != nil {
				return err
			}
			return insertSubcategory(ctx, tx, sub)
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created new subcategory", "owner", owner, "category_id", categoryID, "name", sub.Name, "id", sub.ID)
	return &sub, nil
}

func newSubcategory(id, owner, categoryID string, fields model.SubcategoryFields, now time.Time) model.Subcategory {
	return model.Subcategory{
		ID:          id,
		Owner:       owner,
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(fields.Name),
		Pinned:      fields.Pinned,
		Icon:        fields.Icon,
		Color:       fields.Color,
		Description: fields.Description,
		Order:       fields.Order,
		Active:      fields.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func insertSubcategory(ctx context.Context, q queryable, sub model.Subcategory) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO subcategories (`+subcategoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Owner, sub.CategoryID, sub.Name, boolToInt(sub.Pinned), sub.Icon, sub.Color,
		sub.Description, sub.Order, boolToInt(sub.Active), formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt))
	return err
}

func saveSubcategory(ctx context.Context, q queryable, sub model.Subcategory) error {
	_, err := q.ExecContext(ctx, `
		UPDATE subcategories
		SET category_id = ?, name = ?, pinned = ?, icon = ?, color = ?, description = ?,
		    sort_order = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		sub.CategoryID, sub.Name, boolToInt(sub.Pinned), sub.Icon, sub.Color, sub.Description,
		sub.Order, boolToInt(sub.Active), formatTime(sub.UpdatedAt), sub.ID)
	return err
}

// UpdateSubcategory applies a partial update. Unpinning is rejected.
func (s *SQLiteStorage) UpdateSubcategory(ctx context.Context, id string, patch model.SubcategoryPatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	return s.write(ctx, "failed to update subcategory", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			current, err := getSubcategory(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := CheckSubcategoryUnpin(*current, patch); err != nil {
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
				if err := validateString(updated.Name, "name"); err != nil {
					return err
				}
				siblings, err := querySubcategories(ctx, tx, "category_id", updated.CategoryID)
				if err != nil {
					return err
				}
				if err := CheckSubcategoryNameFree(siblings, updated.Name, id); err != nil {
					return err
				}
				updated.Name = strings.TrimSpace(updated.Name)
			}
			updated.UpdatedAt = s.now()
			return saveSubcategory(ctx, tx, updated)
		})
	})
}

// DeleteSubcategory removes a subcategory. Pinned subcategories are protected.
func (s *SQLiteStorage) DeleteSubcategory(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to delete subcategory", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			current, err := getSubcategory(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := CheckSubcategoryDeletable(*current); err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id)
			return err
		})
	})
}

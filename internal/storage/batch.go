package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/service"
)

type batchOp func(ctx context.Context, tx *sql.Tx, now time.Time) error

// sqliteBatch queues writes and applies them in a single transaction on Commit.
type sqliteBatch struct {
	s   *SQLiteStorage
	ops []batchOp
}

// NewBatch starts an empty write batch.
func (s *SQLiteStorage) NewBatch() service.Batch {
	return &sqliteBatch{s: s}
}

func (b *sqliteBatch) CreateCategory(owner string, fields model.CategoryFields) string {
	id := b.s.newID()
	fields = NormalizeCategoryFields(fields)
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		return insertCategory(ctx, tx, model.Category{
			ID:          id,
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
		})
	})
	return id
}

func (b *sqliteBatch) UpdateCategory(id string, patch model.CategoryPatch) {
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		current, err := getCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		updated := patch.Apply(*current)
		updated.UpdatedAt = now
		return saveCategory(ctx, tx, updated)
	})
}

func (b *sqliteBatch) DeleteCategory(id string) {
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx, _ time.Time) error {
		return removeCategory(ctx, tx, id)
	})
}

func (b *sqliteBatch) CreateSubcategory(owner, categoryID string, fields model.SubcategoryFields) string {
	id := b.s.newID()
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		return insertSubcategory(ctx, tx, newSubcategory(id, owner, categoryID, fields, now))
	})
	return id
}

func (b *sqliteBatch) UpdateSubcategory(id string, patch model.SubcategoryPatch) {
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		current, err := getSubcategory(ctx, tx, id)
		if err != nil {
			return err
		}
		updated := patch.Apply(*current)
		updated.UpdatedAt = now
		return saveSubcategory(ctx, tx, updated)
	})
}

func (b *sqliteBatch) DeleteSubcategory(id string) {
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx, _ time.Time) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id)
		return err
	})
}

func (b *sqliteBatch) Len() int {
	return len(b.ops)
}

// Commit applies every queued write atomically. An empty batch is a no-op.
func (b *sqliteBatch) Commit(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}

	now := b.s.now()
	err := b.s.write(ctx, "failed to commit batch", func() error {
		return b.s.inTx(ctx, func(tx *sql.Tx) error {
			for _, op := range b.ops {
				if err := op(ctx, tx, now); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	slog.Debug("committed batch", "writes", len(b.ops))
	b.ops = nil
	return nil
}

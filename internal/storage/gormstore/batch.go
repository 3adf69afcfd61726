package gormstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/Veraticus/taskflow/internal/storage"
	"gorm.io/gorm"
)

type batch struct {
	s   *Store
	ops []func(ctx context.Context, tx *gorm.DB, now time.Time) error
}

// NewBatch starts an empty write batch.
func (s *Store) NewBatch() service.Batch {
	return &batch{s: s}
}

func (b *batch) CreateCategory(owner string, fields model.CategoryFields) string {
	id := b.s.newID()
	fields = storage.NormalizeCategoryFields(fields)
	b.ops = append(b.ops, func(_ context.Context, tx *gorm.DB, now time.Time) error {
		return tx.Create(categoryFromModel(model.Category{
			ID:          id,
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
		})).Error
	})
	return id
}

func (b *batch) UpdateCategory(id string, patch model.CategoryPatch) {
	b.ops = append(b.ops, func(ctx context.Context, tx *gorm.DB, _ time.Time) error {
		current, err := getCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.Save(categoryFromModel(patch.Apply(*current))).Error
	})
}

func (b *batch) DeleteCategory(id string) {
	b.ops = append(b.ops, func(_ context.Context, tx *gorm.DB, _ time.Time) error {
		return removeCategory(tx, id)
	})
}

func (b *batch) CreateSubcategory(owner, categoryID string, fields model.SubcategoryFields) string {
	id := b.s.newID()
	b.ops = append(b.ops, func(_ context.Context, tx *gorm.DB, now time.Time) error {
		return tx.Create(subcategoryFromModel(newSubcategory(id, owner, categoryID, fields, now))).Error
	})
	return id
}

func (b *batch) UpdateSubcategory(id string, patch model.SubcategoryPatch) {
	b.ops = append(b.ops, func(ctx context.Context, tx *gorm.DB, _ time.Time) error {
		current, err := getSubcategory(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.Save(subcategoryFromModel(patch.Apply(*current))).Error
	})
}

func (b *batch) DeleteSubcategory(id string) {
	b.ops = append(b.ops, func(_ context.Context, tx *gorm.DB, _ time.Time) error {
		return tx.Where("id = ?", id).Delete(&SubcategoryModel{}).Error
	})
}

func (b *batch) Len() int {
	return len(b.ops)
}

// Commit applies every queued write in one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}

	now := b.s.now().UTC()
	err := b.s.write(ctx, "failed to commit batch", func(tx *gorm.DB) error {
		for _, op := range b.ops {
			if err := op(ctx, tx, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("committed batch", "writes", len(b.ops))
	b.ops = nil
	return nil
}

// RecordCatalogSync appends an entry to the catalog audit trail.
func (s *Store) RecordCatalogSync(ctx context.Context, run model.CatalogSync) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(run.Owner, "owner"); err != nil {
		return err
	}
	if err := storage.ValidateString(run.CatalogVersion, "catalogVersion"); err != nil {
		return err
	}
	if run.AppliedAt.IsZero() {
		run.AppliedAt = s.now().UTC()
	}

	return s.write(ctx, "failed to record catalog sync", func(tx *gorm.DB) error {
		return tx.Create(&CatalogSyncModel{
			AppliedAt:            run.AppliedAt,
			Owner:                run.Owner,
			CatalogVersion:       run.CatalogVersion,
			CategoriesCreated:    run.CategoriesCreated,
			CategoriesUpdated:    run.CategoriesUpdated,
			SubcategoriesCreated: run.SubcategoriesCreated,
			SubcategoriesUpdated: run.SubcategoriesUpdated,
		}).Error
	})
}

// LastCatalogSync returns the most recent audit entry for owner.
func (s *Store) LastCatalogSync(ctx context.Context, owner string) (*model.CatalogSync, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(owner, "owner"); err != nil {
		return nil, err
	}

	var row CatalogSyncModel
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("id DESC").First(&row).Error; err != nil {
		return nil, common.Unavailable("failed to query catalog sync", notFound(err, "catalog sync for", owner))
	}
	run := row.toModel()
	return &run, nil
}

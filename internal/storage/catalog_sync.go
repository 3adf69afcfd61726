package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
)

// RecordCatalogSync appends an entry to the catalog audit trail.
func (s *SQLiteStorage) RecordCatalogSync(ctx context.Context, run model.CatalogSync) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(run.Owner, "owner"); err != nil {
		return err
	}
	if err := validateString(run.CatalogVersion, "catalogVersion"); err != nil {
		return err
	}
	if run.AppliedAt.IsZero() {
		run.AppliedAt = s.now()
	}

	return s.write(ctx, "failed to record catalog sync", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO catalog_syncs (owner, catalog_version, categories_created, categories_updated,
				subcategories_created, subcategories_updated, applied_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.Owner, run.CatalogVersion, run.CategoriesCreated, run.CategoriesUpdated,
			run.SubcategoriesCreated, run.SubcategoriesUpdated, formatTime(run.AppliedAt))
		return err
	})
}

// LastCatalogSync returns the most recent audit entry for owner.
func (s *SQLiteStorage) LastCatalogSync(ctx context.Context, owner string) (*model.CatalogSync, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	var (
		run       model.CatalogSync
		appliedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, catalog_version, categories_created, categories_updated,
			subcategories_created, subcategories_updated, applied_at
		FROM catalog_syncs
		WHERE owner = ?
		ORDER BY id DESC
		LIMIT 1`, owner).Scan(&run.Owner, &run.CatalogVersion, &run.CategoriesCreated, &run.CategoriesUpdated,
		&run.SubcategoriesCreated, &run.SubcategoriesUpdated, &appliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog sync for %s: %w", owner, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.Unavailable("failed to query catalog sync", err)
	}
	if run.AppliedAt, err = parseTime(appliedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

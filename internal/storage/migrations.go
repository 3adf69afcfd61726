package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			// Names are deliberately not unique: duplicates can exist and are
			// healed by deduplication. References are not foreign keys for the
			// same reason.
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					owner TEXT NOT NULL,
					name TEXT NOT NULL,
					kind TEXT NOT NULL DEFAULT 'custom',
					pinned INTEGER NOT NULL DEFAULT 0,
					icon TEXT NOT NULL DEFAULT '',
					color TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					sort_order INTEGER NOT NULL DEFAULT 0,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_categories_owner ON categories(owner)`,

				`CREATE TABLE IF NOT EXISTS subcategories (
					id TEXT PRIMARY KEY,
					owner TEXT NOT NULL,
					category_id TEXT NOT NULL,
					name TEXT NOT NULL,
					pinned INTEGER NOT NULL DEFAULT 0,
					icon TEXT NOT NULL DEFAULT '',
					color TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					sort_order INTEGER NOT NULL DEFAULT 0,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_subcategories_category ON subcategories(category_id)`,
				`CREATE INDEX idx_subcategories_owner ON subcategories(owner)`,

				`CREATE TABLE IF NOT EXISTS tasks (
					id TEXT PRIMARY KEY,
					owner TEXT NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					category_id TEXT NOT NULL DEFAULT '',
					subcategory_id TEXT,
					due_date TEXT,
					priority TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'pending',
					task_type TEXT NOT NULL DEFAULT 'task',
					value TEXT NOT NULL DEFAULT '0',
					flow TEXT NOT NULL DEFAULT '',
					recurrence TEXT NOT NULL DEFAULT '',
					installments INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_tasks_owner ON tasks(owner)`,
				`CREATE INDEX idx_tasks_category ON tasks(category_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add public share tokens to tasks",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE tasks ADD COLUMN share_token TEXT`,
				`CREATE UNIQUE INDEX idx_tasks_share_token ON tasks(share_token) WHERE share_token IS NOT NULL`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add catalog sync audit table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS catalog_syncs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner TEXT NOT NULL,
					catalog_version TEXT NOT NULL,
					categories_created INTEGER NOT NULL DEFAULT 0,
					categories_updated INTEGER NOT NULL DEFAULT 0,
					subcategories_created INTEGER NOT NULL DEFAULT 0,
					subcategories_updated INTEGER NOT NULL DEFAULT 0,
					applied_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_catalog_syncs_owner ON catalog_syncs(owner, id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

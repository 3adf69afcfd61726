// Package gormstore implements service.Storage on GORM for hosted databases.
// Production deployments use PostgreSQL; tests run the same code on SQLite.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/Veraticus/taskflow/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Postgres SQLSTATE codes worth retrying.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Store implements service.Storage with GORM.
type Store struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() string
	retry service.RetryOptions
}

// Options configures Open.
type Options struct {
	Dialect string
	DSN     string
	Retry   service.RetryOptions
	// SlowThreshold controls when GORM logs a query as slow.
	SlowThreshold time.Duration
}

// Open connects to the database described by opts.
func Open(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("%w: database dsn", common.ErrMissingConfig)
	}

	var dialector gorm.Dialector
	switch opts.Dialect {
	case DialectPostgres:
		dialector = postgres.Open(opts.DSN)
	case DialectSQLite, "":
		if err := ensureDirForSQLite(opts.DSN); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("%w: unsupported dialect %q", common.ErrInvalidConfig, opts.Dialect)
	}

	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = time.Second
	}

	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
		retry: opts.Retry,
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             opts.SlowThreshold,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		NowFunc: func() time.Time { return s.now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if opts.Dialect != DialectPostgres {
		// SQLite allows one writer; a single connection also keeps :memory: alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s.db = db
	return s, nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&CategoryModel{},
		&SubcategoryModel{},
		&TaskModel{},
		&CatalogSyncModel{},
	); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	slog.Info("gorm schema migrated", "dialect", s.db.Name())
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListOwners returns every owner that has categories or tasks.
func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).
		Raw(`SELECT owner FROM categories UNION SELECT owner FROM tasks ORDER BY owner`).
		Scan(&owners).Error
	if err != nil {
		return nil, common.Unavailable("failed to query owners", err)
	}
	return owners, nil
}

// write runs fn in a transaction, retrying transient conflicts.
func (s *Store) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := common.WithRetry(ctx, func() error {
		err := s.db.WithContext(ctx).Transaction(fn)
		if err != nil && isTransient(err) {
			return &common.RetryableError{Err: err, Retryable: true}
		}
		return err
	}, s.retry)
	if err == nil || storage.IsValidationError(err) {
		return err
	}
	return common.Unavailable(op, err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, common.ErrNotFound)
	}
	return err
}

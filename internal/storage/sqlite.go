package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver, registered as "sqlite"
)

// Supported database/sql driver names.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// Options configures a SQLiteStorage.
type Options struct {
	Path   string
	Driver string
	Retry  service.RetryOptions
}

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	now    func() time.Time
	newID  func() string
	dbPath string
	retry  service.RetryOptions
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage creates a new SQLite storage instance using the default driver.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	return NewSQLiteStorageWithOptions(Options{Path: dbPath})
}

// NewSQLiteStorageWithOptions creates a new SQLite storage instance.
func NewSQLiteStorageWithOptions(opts Options) (*SQLiteStorage, error) {
	if err := validateString(opts.Path, "dbPath"); err != nil {
		return nil, err
	}
	if opts.Driver == "" {
		opts.Driver = DriverMattn
	}

	memory := isMemoryPath(opts.Path)
	if !memory {
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	var dsn string
	switch opts.Driver {
	case DriverMattn:
		dsn = opts.Path + "?_journal_mode=WAL&_busy_timeout=5000"
	case DriverModernc:
		dsn = opts.Path + "?_pragma=busy_timeout(5000)"
	default:
		return nil, fmt.Errorf("%w: unsupported sqlite driver %q", common.ErrInvalidConfig, opts.Driver)
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases alive and avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.Driver == DriverModernc && !memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: opts.Path,
		retry:  opts.Retry,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// ListOwners returns every owner that has categories or tasks.
func (s *SQLiteStorage) ListOwners(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT owner FROM categories
		UNION
		SELECT owner FROM tasks
		ORDER BY owner`)
	if err != nil {
		return nil, common.Unavailable("failed to query owners", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, common.Unavailable("failed to scan owner", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Unavailable("error iterating owners", err)
	}
	return owners, nil
}

// write runs a mutating operation with store-client retries for busy/locked errors.
func (s *SQLiteStorage) write(ctx context.Context, op string, fn func() error) error {
	err := common.WithRetry(ctx, func() error {
		if err := fn(); err != nil {
			if isBusy(err) {
				return &common.RetryableError{Err: err, Retryable: true}
			}
			return err
		}
		return nil
	}, s.retry)
	if err == nil || IsValidationError(err) {
		return err
	}
	return common.Unavailable(op, err)
}

// IsValidationError reports whether err came from argument validation rather than the store.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyString) || errors.Is(err, ErrNilParameter) ||
		errors.Is(err, ErrInvalidCategory) || errors.Is(err, ErrInvalidTask)
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	// modernc.org/sqlite errors expose the extended result code.
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		primary := coded.Code() & 0xff
		return primary == 5 || primary == 6
	}
	return false
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

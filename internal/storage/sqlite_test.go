package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/Veraticus/taskflow/internal/storage/storagetest"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	return createTestStorageWithDriver(t, DriverMattn)
}

func createTestStorageWithDriver(t *testing.T, driver string) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorageWithOptions(Options{Path: dbPath, Driver: driver})
	require.NoError(t, err, "failed to create storage")
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()), "failed to migrate")
	return store
}

func TestSQLiteStorage_Conformance(t *testing.T) {
	for _, driver := range []string{DriverMattn, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			storagetest.Run(t, func(t *testing.T) service.Storage {
				return createTestStorageWithDriver(t, driver)
			})
		})
	}
}

func TestSQLiteStorage_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	_, err = store.CreateCategory(ctx, "alice", model.CategoryFields{Name: "Pessoal"})
	require.NoError(t, err)

	cats, err := store.ListCategories(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestNewSQLiteStorage_Validation(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = NewSQLiteStorageWithOptions(Options{Path: ":memory:", Driver: "postgres"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestSQLiteStorage_DeterministicClock(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 600, time.UTC)
	store.now = func() time.Time { return fixed }
	n := 0
	store.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	cat, err := store.CreateCategory(ctx, "alice", model.CategoryFields{Name: "Casa"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", cat.ID)

	got, err := store.GetCategory(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.CreatedAt), "timestamps keep nanosecond precision")

	b := store.NewBatch()
	assert.Equal(t, "id-2", b.CreateCategory("alice", model.CategoryFields{Name: "Lazer"}))
}

func TestSQLiteStorage_ContextValidation(t *testing.T) {
	store := createTestStorage(t)

	//nolint:staticcheck // testing nil context handling
	_, err := store.ListCategories(nil, "alice")
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = store.ListCategories(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_ClosedDatabase(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Close())

	_, err = store.ListCategories(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = store.CreateCategory(context.Background(), "alice", model.CategoryFields{Name: "Casa"})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestSQLiteStorage_WriteRetriesBusy(t *testing.T) {
	store := createTestStorage(t)
	store.retry = service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond}

	calls := 0
	err := store.write(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = store.write(context.Background(), "op", func() error {
		calls++
		return common.ErrProtectedRecord
	})
	assert.ErrorIs(t, err, common.ErrProtectedRecord)
	assert.False(t, errors.Is(err, common.ErrStoreUnavailable))
	assert.Equal(t, 1, calls, "domain errors are not retried")
}

func TestSQLiteStorage_WriteGivesUpOnPersistentBusy(t *testing.T) {
	store := createTestStorage(t)
	store.retry = service.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond}

	err := store.write(context.Background(), "op", func() error {
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

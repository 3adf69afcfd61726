package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/Veraticus/taskflow/internal/storage/storagetest"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Dialect: DialectSQLite, DSN: filepath.Join(t.TempDir(), "gorm.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) service.Storage {
		return newTestStore(t)
	})
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(Options{Dialect: DialectPostgres})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = Open(Options{Dialect: "oracle", DSN: "x"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestMigrate_IsRepeatable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCategory(ctx, "alice", model.CategoryFields{Name: "Pessoal", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))

	cats, err := s.ListCategories(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestCreateCategory_KeepsInactiveFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCategory(ctx, "alice", model.CategoryFields{Name: "Arquivo", Active: false})
	require.NoError(t, err)

	got, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&pgconn.PgError{Code: pgSerializationFailure}))
	assert.True(t, isTransient(&pgconn.PgError{Code: pgDeadlockDetected}))
	assert.False(t, isTransient(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isTransient(common.ErrNotFound))
}

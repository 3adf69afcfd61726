package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/taskflow/internal/catalog"
	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/Veraticus/taskflow/internal/testutil"
	"github.com/Veraticus/taskflow/internal/testutil/categories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOwners struct {
	mock.Mock
}

func (m *mockOwners) ListOwners(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	owners, _ := args.Get(0).([]string)
	return owners, args.Error(1)
}

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncSystemCatalog(ctx context.Context, owner string) (*engine.SeedReport, error) {
	args := m.Called(ctx, owner)
	report, _ := args.Get(0).(*engine.SeedReport)
	return report, args.Error(1)
}

func TestRunOnce_ContinuesPastFailures(t *testing.T) {
	owners := &mockOwners{}
	owners.On("ListOwners", mock.Anything).Return([]string{"alice", "bob", "carol"}, nil)

	syncer := &mockSyncer{}
	syncer.On("SyncSystemCatalog", mock.Anything, "alice").Return(&engine.SeedReport{CategoriesCreated: 2}, nil)
	syncer.On("SyncSystemCatalog", mock.Anything, "bob").Return(nil, errors.New("store down"))
	syncer.On("SyncSystemCatalog", mock.Anything, "carol").Return(&engine.SeedReport{}, nil)

	s := New(owners, syncer, nil, 0)
	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Owners: 3, Changed: 1, Failed: 1}, result)
	syncer.AssertExpectations(t)
}

func TestRunOnce_ListOwnersFails(t *testing.T) {
	owners := &mockOwners{}
	owners.On("ListOwners", mock.Anything).Return(nil, errors.New("boom"))
	syncer := &mockSyncer{}

	_, err := New(owners, syncer, time.UTC, 0).RunOnce(context.Background())
	require.Error(t, err)
	syncer.AssertNotCalled(t, "SyncSystemCatalog", mock.Anything, mock.Anything)
}

func TestRunOnce_CanceledContext(t *testing.T) {
	owners := &mockOwners{}
	owners.On("ListOwners", mock.Anything).Return([]string{"alice"}, nil)
	syncer := &mockSyncer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(owners, syncer, nil, 0).RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	syncer.AssertNotCalled(t, "SyncSystemCatalog", mock.Anything, mock.Anything)
}

func TestRunOnce_SeedsEveryOwnerInStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.Build("alice", func(b categories.Builder) categories.Builder { return b.WithCategory("Mercado") })
	db.Build("bob", func(b categories.Builder) categories.Builder { return b.WithCategory("Academia") })

	e := engine.New(db.Storage, catalog.Default())
	result, err := New(db.Storage, e, nil, time.Minute).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Owners)
	assert.Equal(t, 2, result.Changed)

	assert.Len(t, db.MustCategories("alice"), catalog.Default().Len()+1)
	assert.Len(t, db.MustCategories("bob"), catalog.Default().Len()+1)
}

func TestSchedule_Specs(t *testing.T) {
	s := New(&mockOwners{}, &mockSyncer{}, nil, 0)

	_, err := s.Schedule("")
	require.NoError(t, err)
	_, err = s.Schedule("0 3 * * *")
	require.NoError(t, err)
	_, err = s.Schedule("not a spec")
	require.Error(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

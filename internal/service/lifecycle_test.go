package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"docvault/internal/config"
	"docvault/internal/model"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLifecycleConfig() config.LifecycleConfig {
	return config.LifecycleConfig{
		GraceWindow:   time.Hour,
		SweepInterval: 10 * time.Minute,
	}
}

func newLifecycle(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mOrphans *repoMocks.MockOrphanRepository) *lifecycleService {
	svc := NewLifecycleService(mStore, mDocs, mOrphans, testLifecycleConfig(), nil)
	return svc.(*lifecycleService)
}

func TestLifecycleService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		tenantID   string
		id         string
		setupMocks func(mDocs *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name:     "soft deletes live row",
			tenantID: "tenant-1",
			id:       "d1",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("SoftDelete", ctx, "tenant-1", "d1").Return(true, nil)
			},
		},
		{
			name:     "repeat delete is a no-op success",
			tenantID: "tenant-1",
			id:       "d1",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("SoftDelete", ctx, "tenant-1", "d1").Return(false, nil)
				mDocs.On("DeletedExists", ctx, "tenant-1", "d1").Return(true, nil)
			},
		},
		{
			name:     "unknown id",
			tenantID: "tenant-1",
			id:       "missing",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("SoftDelete", ctx, "tenant-1", "missing").Return(false, nil)
				mDocs.On("DeletedExists", ctx, "tenant-1", "missing").Return(false, nil)
			},
			wantErr: ErrNotFound,
		},
		{
			name:       "empty id",
			tenantID:   "tenant-1",
			id:         "",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name:     "repository error",
			tenantID: "tenant-1",
			id:       "d1",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("SoftDelete", ctx, "tenant-1", "d1").Return(false, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mDocs := new(repoMocks.MockDocumentRepository)
			svc := NewLifecycleService(nil, mDocs, nil, testLifecycleConfig(), nil)

			tt.setupMocks(mDocs)

			err := svc.Delete(ctx, tt.tenantID, tt.id)

			if tt.wantErr != nil {
				assert.Error(t, err)
				if errors.Is(tt.wantErr, ErrNotFound) || errors.Is(tt.wantErr, ErrIDRequired) {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				assert.NoError(t, err)
			}
			mDocs.AssertExpectations(t)
		})
	}
}

func TestLifecycleService_ReconcileOrphans(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-time.Hour)
	old := cutoff.Add(-time.Hour)

	t.Run("marks stale rows failed", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mOrphans := new(repoMocks.MockOrphanRepository)
		svc := newLifecycle(mStore, mDocs, mOrphans)
		svc.now = func() time.Time { return now }

		stuck := model.Document{ID: "d1", TenantID: "tenant-1", StorageKey: "tenant-1/k1", Status: model.StatusStored, UploadedAt: old}
		mDocs.On("FindStale", ctx, cutoff).Return([]model.Document{stuck}, nil)
		mDocs.On("MarkFailed", ctx, "d1").Return(nil)
		mOrphans.On("ListOlderThan", ctx, cutoff).Return(nil, nil)
		mDocs.On("FindReclaimable", ctx, cutoff).Return(nil, nil)
		mStore.On("List", ctx, "").Return([]storage.ObjectInfo{}, nil)

		count, err := svc.ReconcileOrphans(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, count)
		mDocs.AssertExpectations(t)
	})

	t.Run("drains recorded orphans", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mOrphans := new(repoMocks.MockOrphanRepository)
		svc := newLifecycle(mStore, mDocs, mOrphans)
		svc.now = func() time.Time { return now }

		mDocs.On("FindStale", ctx, cutoff).Return(nil, nil)
		mOrphans.On("ListOlderThan", ctx, cutoff).Return([]model.OrphanBlob{
			{StorageKey: "tenant-1/orphan", TenantID: "tenant-1", RecordedAt: old},
		}, nil)
		mStore.On("Delete", ctx, "tenant-1/orphan").Return(nil)
		mOrphans.On("Remove", ctx, "tenant-1/orphan").Return(nil)
		mDocs.On("FindReclaimable", ctx, cutoff).Return(nil, nil)
		mStore.On("List", ctx, "").Return([]storage.ObjectInfo{}, nil)

		count, err := svc.ReconcileOrphans(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		mStore.AssertExpectations(t)
		mOrphans.AssertExpectations(t)
	})

	t.Run("reclaims blobs behind terminal rows", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mOrphans := new(repoMocks.MockOrphanRepository)
		svc := newLifecycle(mStore, mDocs, mOrphans)
		svc.now = func() time.Time { return now }

		deletedAt := old
		gone := model.Document{ID: "d1", TenantID: "tenant-1", StorageKey: "tenant-1/k1", Status: model.StatusDeleted, DeletedAt: &deletedAt}
		mDocs.On("FindStale", ctx, cutoff).Return(nil, nil)
		mOrphans.On("ListOlderThan", ctx, cutoff).Return(nil, nil)
		mDocs.On("FindReclaimable", ctx, cutoff).Return([]model.Document{gone}, nil)
		mStore.On("Delete", ctx, "tenant-1/k1").Return(nil)
		mDocs.On("MarkBlobReclaimed", ctx, "d1").Return(nil)
		mStore.On("List", ctx, "").Return([]storage.ObjectInfo{}, nil)

		count, err := svc.ReconcileOrphans(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		mDocs.AssertExpectations(t)
	})

	t.Run("storage scan removes unreferenced objects past the grace window", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mOrphans := new(repoMocks.MockOrphanRepository)
		svc := newLifecycle(mStore, mDocs, mOrphans)
		svc.now = func() time.Time { return now }

		mDocs.On("FindStale", ctx, cutoff).Return(nil, nil)
		mOrphans.On("ListOlderThan", ctx, cutoff).Return(nil, nil)
		mDocs.On("FindReclaimable", ctx, cutoff).Return(nil, nil)
		mStore.On("List", ctx, "").Return([]storage.ObjectInfo{
			{Key: "tenant-1/unreferenced", LastModified: old},
			{Key: "tenant-1/referenced", LastModified: old},
			{Key: "tenant-1/in-flight", LastModified: now.Add(-time.Minute)},
		}, nil)
		mDocs.On("ExistsByStorageKey", ctx, "tenant-1/unreferenced").Return(false, nil)
		mDocs.On("ExistsByStorageKey", ctx, "tenant-1/referenced").Return(true, nil)
		mStore.On("Delete", ctx, "tenant-1/unreferenced").Return(nil)

		count, err := svc.ReconcileOrphans(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		// In-flight object is inside the grace window: never even checked.
		mDocs.AssertNotCalled(t, "ExistsByStorageKey", ctx, "tenant-1/in-flight")
		mStore.AssertExpectations(t)
	})

	t.Run("blob delete failure keeps the orphan record", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mOrphans := new(repoMocks.MockOrphanRepository)
		svc := newLifecycle(mStore, mDocs, mOrphans)
		svc.now = func() time.Time { return now }

		mDocs.On("FindStale", ctx, cutoff).Return(nil, nil)
		mOrphans.On("ListOlderThan", ctx, cutoff).Return([]model.OrphanBlob{
			{StorageKey: "tenant-1/orphan", TenantID: "tenant-1", RecordedAt: old},
		}, nil)
		mStore.On("Delete", ctx, "tenant-1/orphan").Return(errors.New("backend down"))
		mDocs.On("FindReclaimable", ctx, cutoff).Return(nil, nil)
		mStore.On("List", ctx, "").Return([]storage.ObjectInfo{}, nil)

		count, err := svc.ReconcileOrphans(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, count)
		mOrphans.AssertNotCalled(t, "Remove", ctx, mock.Anything)
	})
}

func TestLifecycleService_FlagInconsistent(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the row failed", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewLifecycleService(nil, mDocs, nil, testLifecycleConfig(), nil)

		mDocs.On("MarkFailed", ctx, "d1").Return(nil)

		require.NoError(t, svc.FlagInconsistent(ctx, "d1"))
		mDocs.AssertExpectations(t)
	})

	t.Run("empty id", func(t *testing.T) {
		svc := NewLifecycleService(nil, nil, nil, testLifecycleConfig(), nil)

		assert.ErrorIs(t, svc.FlagInconsistent(ctx, ""), ErrIDRequired)
	})

	t.Run("repository error propagates", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewLifecycleService(nil, mDocs, nil, testLifecycleConfig(), nil)

		mDocs.On("MarkFailed", ctx, "d1").Return(errors.New("db fail"))

		assert.Error(t, svc.FlagInconsistent(ctx, "d1"))
	})
}

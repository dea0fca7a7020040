package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func availableDoc(id, tenant string) *model.Document {
	return &model.Document{
		ID:               id,
		TenantID:         tenant,
		OriginalFilename: "report.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        10,
		StorageKey:       tenant + "/key-" + id,
		ContentHash:      "hash",
		Status:           model.StatusAvailable,
		UploadedAt:       time.Now().UTC(),
	}
}

type stubFlagger struct {
	mock.Mock
}

func (f *stubFlagger) FlagInconsistent(ctx context.Context, id string) error {
	args := f.Called(ctx, id)
	return args.Error(0)
}

func TestCatalogService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		tenantID   string
		limit      int
		offset     int
		setupMocks func(mDocs *repoMocks.MockDocumentRepository)
		wantErr    error
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name:     "happy path",
			tenantID: "tenant-1",
			limit:    10,
			offset:   0,
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("List", ctx, "tenant-1", repository.ListFilter{}, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{
						Items: []model.Document{*availableDoc("d1", "tenant-1"), *availableDoc("d2", "tenant-1")},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				require.Len(t, res.Items, 2)
				assert.Equal(t, 2, res.Total)
				assert.Equal(t, "d1", res.Items[0].ID)
				assert.Equal(t, model.StatusAvailable, res.Items[0].Status)
			},
		},
		{
			name:     "pagination boundary - zero limit uses default",
			tenantID: "tenant-1",
			limit:    0,
			offset:   -1,
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("List", ctx, "tenant-1", repository.ListFilter{}, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:       "missing tenant",
			tenantID:   "",
			limit:      10,
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrTenantRequired,
		},
		{
			name:     "repository error",
			tenantID: "tenant-1",
			limit:    10,
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("List", ctx, "tenant-1", mock.Anything, mock.Anything).
					Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mDocs := new(repoMocks.MockDocumentRepository)
			svc := NewCatalogService(nil, mDocs, nil, nil)

			tt.setupMocks(mDocs)

			res, err := svc.List(ctx, tt.tenantID, repository.ListFilter{}, tt.limit, tt.offset)

			if tt.wantErr != nil {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			mDocs.AssertExpectations(t)
		})
	}
}

func TestCatalogService_Resolve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		tenantID   string
		id         string
		setupMocks func(mDocs *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name:     "happy path",
			tenantID: "tenant-1",
			id:       "d1",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(availableDoc("d1", "tenant-1"), nil)
			},
		},
		{
			name:       "empty id",
			tenantID:   "tenant-1",
			id:         "",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name:     "missing id maps to not found",
			tenantID: "tenant-1",
			id:       "missing",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("FindByID", ctx, "tenant-1", "missing").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name:     "foreign tenant indistinguishable from missing",
			tenantID: "tenant-2",
			id:       "d1",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("FindByID", ctx, "tenant-2", "d1").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name:     "row still mid-ingestion is invisible",
			tenantID: "tenant-1",
			id:       "d1",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				doc := availableDoc("d1", "tenant-1")
				doc.Status = model.StatusStored
				mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(doc, nil)
			},
			wantErr: ErrNotFound,
		},
		{
			name:     "generic repository error",
			tenantID: "tenant-1",
			id:       "d1",
			setupMocks: func(mDocs *repoMocks.MockDocumentRepository) {
				mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mDocs := new(repoMocks.MockDocumentRepository)
			svc := NewCatalogService(nil, mDocs, nil, nil)

			tt.setupMocks(mDocs)

			doc, err := svc.Resolve(ctx, tt.tenantID, tt.id)

			if tt.wantErr != nil {
				assert.Error(t, err)
				if errors.Is(tt.wantErr, ErrNotFound) || errors.Is(tt.wantErr, ErrIDRequired) {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, doc)
			}
			mDocs.AssertExpectations(t)
		})
	}
}

func TestCatalogService_ResolveIsStable(t *testing.T) {
	// Repeated resolves return the same opaque id and storage key; nothing is
	// recomputed from the filename or content hash.
	ctx := context.Background()
	mDocs := new(repoMocks.MockDocumentRepository)
	svc := NewCatalogService(nil, mDocs, nil, nil)

	doc := availableDoc("d1", "tenant-1")
	mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(doc, nil).Twice()

	first, err := svc.Resolve(ctx, "tenant-1", "d1")
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, "tenant-1", "d1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.StorageKey, second.StorageKey)
}

func TestCatalogService_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("streams bytes via resolved storage key", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewCatalogService(mStore, mDocs, nil, nil)

		doc := availableDoc("d1", "tenant-1")
		mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(doc, nil)
		mStore.On("Get", ctx, doc.StorageKey).
			Return(io.NopCloser(strings.NewReader("0123456789")), storage.ObjectInfo{Key: doc.StorageKey, Size: 10}, nil)

		got, rc, err := svc.Download(ctx, "tenant-1", "d1")

		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, doc.ID, got.ID)
		payload, _ := io.ReadAll(rc)
		assert.Len(t, payload, 10)
		mStore.AssertExpectations(t)
		mDocs.AssertExpectations(t)
	})

	t.Run("missing blob surfaces inconsistent state and reports the row", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mFlagger := new(stubFlagger)
		svc := NewCatalogService(mStore, mDocs, mFlagger, nil)

		doc := availableDoc("d1", "tenant-1")
		mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(doc, nil)
		mStore.On("Get", ctx, doc.StorageKey).
			Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)
		mFlagger.On("FlagInconsistent", ctx, "d1").Return(nil)

		_, _, err := svc.Download(ctx, "tenant-1", "d1")

		assert.ErrorIs(t, err, ErrInconsistentState)
		// The catalog never writes document state itself.
		mDocs.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
		mFlagger.AssertExpectations(t)
	})

	t.Run("nil flagger still fails the read", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewCatalogService(mStore, mDocs, nil, nil)

		doc := availableDoc("d1", "tenant-1")
		mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(doc, nil)
		mStore.On("Get", ctx, doc.StorageKey).
			Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)

		_, _, err := svc.Download(ctx, "tenant-1", "d1")

		assert.ErrorIs(t, err, ErrInconsistentState)
	})

	t.Run("not found propagates", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewCatalogService(mStore, mDocs, nil, nil)

		mDocs.On("FindByID", ctx, "tenant-1", "missing").Return(nil, sql.ErrNoRows)

		_, _, err := svc.Download(ctx, "tenant-1", "missing")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCatalogService_PresignDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("returns presigned url for resolved key", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewCatalogService(mStore, mDocs, nil, nil)

		doc := availableDoc("d1", "tenant-1")
		mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(doc, nil)
		mStore.On("PresignGet", ctx, doc.StorageKey, 5*time.Minute).
			Return("https://storage.local/"+doc.StorageKey+"?sig=abc", nil)

		u, err := svc.PresignDownload(ctx, "tenant-1", "d1", 5*time.Minute)

		require.NoError(t, err)
		assert.Contains(t, u, doc.StorageKey)
		mStore.AssertExpectations(t)
	})

	t.Run("non-positive expiry falls back to default", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewCatalogService(mStore, mDocs, nil, nil)

		doc := availableDoc("d1", "tenant-1")
		mDocs.On("FindByID", ctx, "tenant-1", "d1").Return(doc, nil)
		mStore.On("PresignGet", ctx, doc.StorageKey, 15*time.Minute).
			Return("https://storage.local/signed", nil)

		_, err := svc.PresignDownload(ctx, "tenant-1", "d1", 0)

		require.NoError(t, err)
		mStore.AssertExpectations(t)
	})

	t.Run("not found propagates", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewCatalogService(mStore, mDocs, nil, nil)

		mDocs.On("FindByID", ctx, "tenant-1", "missing").Return(nil, sql.ErrNoRows)

		_, err := svc.PresignDownload(ctx, "tenant-1", "missing", time.Minute)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

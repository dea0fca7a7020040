package mocks

import (
	"context"
	"io"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, tenantID, filename, mimeType string, r io.Reader, size int64) (*model.Document, error) {
	args := m.Called(ctx, tenantID, filename, mimeType, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context, tenantID string, f repository.ListFilter, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, tenantID, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockCatalogService) Resolve(ctx context.Context, tenantID, id string) (*model.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockCatalogService) Download(ctx context.Context, tenantID, id string) (*model.Document, io.ReadCloser, error) {
	args := m.Called(ctx, tenantID, id)
	doc, _ := args.Get(0).(*model.Document)
	rc, _ := args.Get(1).(io.ReadCloser)
	return doc, rc, args.Error(2)
}

func (m *MockCatalogService) PresignDownload(ctx context.Context, tenantID, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, tenantID, id, expiry)
	return args.String(0), args.Error(1)
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockLifecycleService) ReconcileOrphans(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLifecycleService) FlagInconsistent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

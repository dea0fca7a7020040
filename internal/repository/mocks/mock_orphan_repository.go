package mocks

import (
	"context"
	"time"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockOrphanRepository struct {
	mock.Mock
}

func (m *MockOrphanRepository) Record(ctx context.Context, tenantID, storageKey string) error {
	args := m.Called(ctx, tenantID, storageKey)
	return args.Error(0)
}

func (m *MockOrphanRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.OrphanBlob, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrphanBlob), args.Error(1)
}

func (m *MockOrphanRepository) Remove(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

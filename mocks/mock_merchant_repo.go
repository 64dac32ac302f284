package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"recivo/internal/domain"
)

// MockMerchantRepo is a mock implementation of port.MerchantRepository.
type MockMerchantRepo struct {
	mock.Mock
}

func (m *MockMerchantRepo) Create(ctx context.Context, merchant *domain.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

func (m *MockMerchantRepo) GetByID(ctx context.Context, userID, merchantID uuid.UUID) (*domain.Merchant, error) {
	args := m.Called(ctx, userID, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Merchant), args.Error(1)
}

func (m *MockMerchantRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Merchant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Merchant), args.Error(1)
}

func (m *MockMerchantRepo) Update(ctx context.Context, merchant *domain.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"recivo/internal/domain"
)

// MockUserRepo is a mock implementation of port.UserRepository.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByForwardingAlias(ctx context.Context, alias string) (*domain.User, error) {
	args := m.Called(ctx, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByBotChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) AliasExists(ctx context.Context, alias string) (bool, error) {
	args := m.Called(ctx, alias)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) SetForwardingAlias(ctx context.Context, userID uuid.UUID, alias string) error {
	args := m.Called(ctx, userID, alias)
	return args.Error(0)
}

func (m *MockUserRepo) CheckAndIncrementQuota(ctx context.Context, userID uuid.UUID, planLimits map[domain.UserPlan]int) error {
	args := m.Called(ctx, userID, planLimits)
	return args.Error(0)
}

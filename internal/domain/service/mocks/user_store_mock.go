package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/authcore/internal/domain/models"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Lookup(ctx context.Context, subject string) (*models.UserRecord, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRecord), args.Error(1)
}

func (m *MockUserStore) LookupSimplified(ctx context.Context, subject string) (*models.UserRecord, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRecord), args.Error(1)
}

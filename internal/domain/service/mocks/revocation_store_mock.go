package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRevocationStore struct {
	mock.Mock
}

func (m *MockRevocationStore) Add(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *MockRevocationStore) Contains(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockConfigSource struct {
	mock.Mock
}

func (m *MockConfigSource) CurrentKeyValue(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockConfigSource) OldKeyValues(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockConfigSource) IsDebugMode() bool {
	args := m.Called()
	return args.Bool(0)
}

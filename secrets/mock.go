package secrets

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSecretProvider mocks the SecretProvider interface
type MockSecretProvider struct {
	mock.Mock
}

// GetItem mocks the GetItem method
func (m *MockSecretProvider) GetItem(ctx context.Context, bag, item string) (map[string]string, error) {
	args := m.Called(ctx, bag, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// Name returns a fixed identifier.
func (m *MockSecretProvider) Name() string {
	return "mock"
}

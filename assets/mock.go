package assets

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAssetSource mocks the AssetSource interface
type MockAssetSource struct {
	mock.Mock
	name string
}

// NewMockAssetSource creates a mock source reporting the given name.
func NewMockAssetSource(name string) *MockAssetSource {
	return &MockAssetSource{name: name}
}

// Fetch mocks the Fetch method
func (m *MockAssetSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Name returns the configured name.
func (m *MockAssetSource) Name() string {
	return m.name
}

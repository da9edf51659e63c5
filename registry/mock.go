package registry

import (
	"context"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockNodeQuery mocks the NodeQuery interface
type MockNodeQuery struct {
	mock.Mock
}

// Search mocks the Search method
func (m *MockNodeQuery) Search(ctx context.Context, query string) ([]interfaces.Node, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.Node), args.Error(1)
}

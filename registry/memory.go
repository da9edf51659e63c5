package registry

import (
	"context"
	"slices"
	"sync"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// MemoryRegistry provides a simple in-memory implementation of the NodeQuery
// interface for fixtures and tests without requiring a registry server.
// Nodes are returned in registration order.
type MemoryRegistry struct {
	mutex sync.RWMutex
	nodes []interfaces.Node
}

// NewMemoryRegistry creates an in-memory registry holding the given nodes.
func NewMemoryRegistry(nodes ...interfaces.Node) *MemoryRegistry {
	return &MemoryRegistry{nodes: slices.Clone(nodes)}
}

// Register adds a node, replacing any existing node with the same name in place.
func (m *MemoryRegistry) Register(node interfaces.Node) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, existing := range m.nodes {
		if existing.Name != "" && existing.Name == node.Name {
			m.nodes[i] = node
			return
		}
	}
	m.nodes = append(m.nodes, node)
}

// Remove deletes the named node. It reports whether a node was removed.
func (m *MemoryRegistry) Remove(name string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, existing := range m.nodes {
		if existing.Name == name {
			m.nodes = slices.Delete(m.nodes, i, i+1)
			return true
		}
	}
	return false
}

// Search implements interfaces.NodeQuery.
func (m *MemoryRegistry) Search(ctx context.Context, query string) ([]interfaces.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return filterNodes(m.nodes, query)
}

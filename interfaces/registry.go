package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrRegistryUnavailable is returned when the node registry cannot be reached.
	// This could be due to network issues, authentication failures or a missing index.
	ErrRegistryUnavailable = errors.New("node registry unavailable")

	// ErrInvalidQuery is returned when a search query is malformed.
	// Queries follow the format: field:value
	ErrInvalidQuery = errors.New("invalid search query")
)

// NodeQuery provides read-only search over the node registry.
type NodeQuery interface {
	// Search returns all nodes matching query, in registry order.
	Search(ctx context.Context, query string) ([]Node, error)
}

package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrSecretNotFound is returned when a data bag, item or key does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretBackendUnavailable is returned when the secret store is not accessible.
	ErrSecretBackendUnavailable = errors.New("secret backend unavailable")

	// ErrAssetNotFound is returned when no asset source provides the requested file.
	ErrAssetNotFound = errors.New("asset not found")
)

// SecretProvider supplies data bag items from a secret store.
type SecretProvider interface {
	// GetItem returns the string values of item in bag.
	GetItem(ctx context.Context, bag, item string) (map[string]string, error)

	// Name returns identifier for logging.
	Name() string
}

// AssetSource provides named files shipped alongside the recipe.
type AssetSource interface {
	// Fetch returns the content of the named asset.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Name returns identifier for logging.
	Name() string
}

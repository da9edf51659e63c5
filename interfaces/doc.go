// Package interfaces defines the core interfaces and types shared by the
// offsite backup provisioning components, separating contracts from their
// implementations.
//
// # Registry Interfaces
//
// NodeQuery: searches the node registry (the index of every registered host and
// its declared attributes) and returns matching nodes in registry order.
//
// # Secret Interfaces
//
// SecretProvider: returns a data bag item, a flat mapping of string keys to
// string values, for example the rsync private key for an environment.
//
// # Asset Interfaces
//
// AssetSource: returns the content of a named file shipped with the recipe,
// such as the backup-rotate script or the cron template.
//
// # Error Types
//
//   - ErrRegistryUnavailable: the node registry could not be reached
//   - ErrInvalidQuery: the search query could not be parsed
//   - ErrSecretNotFound: the requested bag, item or key does not exist
//   - ErrSecretBackendUnavailable: the secret store could not be reached
//   - ErrAssetNotFound: no source provides the named asset
//
// Components should depend on these interfaces rather than on concrete
// implementations so that a run can be exercised against in-memory fixtures:
//
//	func NewTargetResolver(query interfaces.NodeQuery, log *slog.Logger) *TargetResolver
package interfaces

// Package secrets provides data bag items from a secret store.
//
// A data bag item is a flat map of string keys to string values, addressed
// by bag and item name. The offsite recipe reads bag "secrets", item = the
// node's environment, and takes the "rsync-backups-user.priv" key from it.
//
// Supported providers, selected with NewProviderFromURI:
//
//   - vault://vault.example.com:8200/secret?kv=2 - HashiCorp Vault KV engine
//   - file:///etc/offsite/data_bags - data bag JSON files, <dir>/<bag>/<item>.json
//
// Lookup failures are reported as interfaces.ErrSecretNotFound; an unreachable
// store as interfaces.ErrSecretBackendUnavailable.
package secrets

package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// NewProviderFromURI creates a SecretProvider from a location URI.
//
// Supported schemes:
//   - vault://host:port/mount?kv=2&tls=true - token is used for authentication
//   - file:///path/to/data_bags
func NewProviderFromURI(locationURI, token string, log *slog.Logger) (interfaces.SecretProvider, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid secrets URI %q: %w", locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "vault":
		return createVaultProvider(u, token, log)
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + "/" + strings.TrimPrefix(path, "/")
		}
		if path == "" {
			return nil, fmt.Errorf("empty path in file URI: %s", locationURI)
		}
		log.Debug("Creating file secret provider", slog.String("dir", path))
		return NewFileProvider(path, log), nil
	default:
		return nil, fmt.Errorf("unsupported secrets scheme: %s", u.Scheme)
	}
}

func createVaultProvider(u *url.URL, token string, log *slog.Logger) (*VaultProvider, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in vault URI: %s", u.String())
	}

	query := u.Query()
	scheme := "https"
	if query.Get("tls") == "false" {
		scheme = "http"
	}

	kvVersion := 2
	if kv := query.Get("kv"); kv != "" {
		v, err := strconv.Atoi(kv)
		if err != nil {
			return nil, fmt.Errorf("invalid kv version %q: %w", kv, err)
		}
		kvVersion = v
	}

	address := fmt.Sprintf("%s://%s", scheme, u.Host)
	log.Debug("Creating Vault secret provider",
		slog.String("address", address),
		slog.String("mount", u.Path),
		slog.Int("kv", kvVersion))

	return NewVaultProvider(VaultOptions{
		Address:   address,
		Token:     token,
		MountPath: u.Path,
		KVVersion: kvVersion,
	}, log)
}

// Lookup returns a single key of a data bag item.
func Lookup(ctx context.Context, provider interfaces.SecretProvider, bag, item, key string) (string, error) {
	values, err := provider.GetItem(ctx, bag, item)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s/%s from %s: %w", bag, item, provider.Name(), err)
	}

	value, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: key %q in %s/%s", interfaces.ErrSecretNotFound, key, bag, item)
	}
	return value, nil
}

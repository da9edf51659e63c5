package secrets

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// VaultProvider implements SecretProvider using a HashiCorp Vault KV engine.
// Data bag items map to secrets at <mount>/<bag>/<item>.
type VaultProvider struct {
	client    *api.Client
	mountPath string
	kvVersion int
	log       *slog.Logger
}

// VaultOptions configures a VaultProvider.
type VaultOptions struct {
	// Address of the Vault server (e.g. https://vault.example.com:8200)
	Address string
	// Token used to authenticate; empty keeps VAULT_TOKEN from the environment
	Token string
	// MountPath of the KV engine (e.g. "secret")
	MountPath string
	// KVVersion is 1 or 2; 0 means 2
	KVVersion int
	// TLSConfig is used for https addresses when set
	TLSConfig *tls.Config
}

// NewVaultProvider creates a Vault-backed secret provider.
func NewVaultProvider(opts VaultOptions, log *slog.Logger) (*VaultProvider, error) {
	config := api.DefaultConfig()
	config.Address = opts.Address
	config.MaxRetries = 0

	transport := &http.Transport{}
	if opts.TLSConfig != nil {
		transport.TLSClientConfig = opts.TLSConfig
	}
	config.HttpClient = &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if opts.Token != "" {
		client.SetToken(opts.Token)
	}

	kvVersion := opts.KVVersion
	if kvVersion == 0 {
		kvVersion = 2
	}
	if kvVersion != 1 && kvVersion != 2 {
		return nil, fmt.Errorf("unsupported KV version: %d", kvVersion)
	}

	mountPath := strings.Trim(opts.MountPath, "/")
	if mountPath == "" {
		mountPath = "secret"
	}

	return &VaultProvider{
		client:    client,
		mountPath: mountPath,
		kvVersion: kvVersion,
		log:       log,
	}, nil
}

// GetItem reads the item from Vault and returns its string values.
func (p *VaultProvider) GetItem(ctx context.Context, bag, item string) (map[string]string, error) {
	start := time.Now()
	path := p.itemPath(bag, item)

	secret, err := p.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		p.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSecretBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		p.log.Debug("Secret not found in Vault", slog.String("path", path))
		return nil, fmt.Errorf("%w: %s/%s", interfaces.ErrSecretNotFound, bag, item)
	}

	data := secret.Data
	if p.kvVersion == 2 {
		inner, ok := secret.Data["data"].(map[string]interface{})
		if !ok {
			// A deleted KV v2 version returns metadata with null data.
			return nil, fmt.Errorf("%w: %s/%s", interfaces.ErrSecretNotFound, bag, item)
		}
		data = inner
	}

	values := stringValues(data)

	p.log.Debug("Fetched secret from Vault",
		slog.String("path", path),
		slog.Int("keys", len(values)),
		slog.Duration("duration", time.Since(start)))

	return values, nil
}

// Available checks that Vault is initialized and unsealed.
func (p *VaultProvider) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := p.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		p.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		p.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

// Name returns a unique identifier for this provider.
func (p *VaultProvider) Name() string {
	return fmt.Sprintf("vault-%s", p.mountPath)
}

func (p *VaultProvider) itemPath(bag, item string) string {
	if p.kvVersion == 2 {
		return fmt.Sprintf("%s/data/%s/%s", p.mountPath, bag, item)
	}
	return fmt.Sprintf("%s/%s/%s", p.mountPath, bag, item)
}

// stringValues keeps the string-valued entries of a decoded item.
func stringValues(data map[string]interface{}) map[string]string {
	values := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}
	return values
}

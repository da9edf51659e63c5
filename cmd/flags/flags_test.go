package flags

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/offsite-backup-provisioning/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runLoadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var (
		cfg *config.Config
		err error
	)
	app := &cli.App{
		Name:      "test",
		Flags:     append(CommonFlags, DryRunFlag, PruneOrphansFlag),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Action: func(cCtx *cli.Context) error {
			cfg, err = LoadConfig(cCtx)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg, err
}

func skipIfInstalled(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(config.DefaultPath); err == nil {
		t.Skipf("%s exists on this machine", config.DefaultPath)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	skipIfInstalled(t)
	t.Setenv("VAULT_TOKEN", "")

	cfg, err := runLoadConfig(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	_, err := runLoadConfig(t, "--config", filepath.Join(t.TempDir(), "config.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[node]
environment = "staging"

[registry]
uri = "file:///srv/nodes"
`), 0o600))

	t.Setenv("OFFSITE_SECRETS_URI", "vault://vault:8200/secret")
	cfg, err := runLoadConfig(t,
		"--config", path,
		"--environment", "production",
		"--assets-uri", "file:///srv/files",
		"--assets-uri", "embedded://",
		"--dry-run",
	)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Node.Environment)
	assert.Equal(t, "file:///srv/nodes", cfg.Registry.URI)
	assert.Equal(t, "vault://vault:8200/secret", cfg.Secrets.URI)
	assert.Equal(t, []string{"file:///srv/files", "embedded://"}, cfg.Assets.URIs)
	assert.True(t, cfg.Host.DryRun)
	assert.False(t, cfg.Backup.PruneOrphans)
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	skipIfInstalled(t)

	_, err := runLoadConfig(t, "--environment", " ")
	assert.ErrorContains(t, err, "node.environment must be set")
}

func TestHostRootFlag_DescribesFilesystemScope(t *testing.T) {
	assert.Contains(t, HostRootFlag.Usage, "filesystem paths only")
	assert.NotContains(t, HostRootFlag.Usage, "chroot")
}

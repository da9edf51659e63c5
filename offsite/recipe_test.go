package offsite

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruteri/offsite-backup-provisioning/assets"
	"github.com/ruteri/offsite-backup-provisioning/converge"
	"github.com/ruteri/offsite-backup-provisioning/interfaces"
	"github.com/ruteri/offsite-backup-provisioning/registry"
	"github.com/ruteri/offsite-backup-provisioning/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// fakeSystem answers package and account commands and remembers users it
// created, so a second run sees the first run's effects.
type fakeSystem struct {
	users    map[string]string
	commands []string
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{users: make(map[string]string)}
}

func (f *fakeSystem) Run(ctx context.Context, cmd converge.Command) (converge.CommandResult, error) {
	f.commands = append(f.commands, cmd.String())
	switch cmd.Name {
	case "which", "apt-get":
		return converge.CommandResult{}, nil
	case "dpkg-query":
		return converge.CommandResult{Stdout: "install ok installed"}, nil
	case "getent":
		entry, ok := f.users[cmd.Args[1]]
		if !ok {
			return converge.CommandResult{ExitCode: 2}, nil
		}
		return converge.CommandResult{Stdout: entry}, nil
	case "useradd":
		name := cmd.Args[len(cmd.Args)-1]
		f.users[name] = name + ":x:998:998:Rsync User:/backup:/bin/bash\n"
		return converge.CommandResult{}, nil
	}
	return converge.CommandResult{ExitCode: 127}, nil
}

type currentAccounts struct{}

func (currentAccounts) LookupUser(string) (int, error)  { return os.Getuid(), nil }
func (currentAccounts) LookupGroup(string) (int, error) { return os.Getgid(), nil }

type fixture struct {
	root    string
	system  *fakeSystem
	secrets *secrets.MockSecretProvider
	nodes   *registry.MemoryRegistry
	recipe  *Recipe
}

func testPrivateKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "rsync@offsite")
	require.NoError(t, err)
	return string(pem.EncodeToMemory(block))
}

func scenarioNodes() []interfaces.Node {
	return []interfaces.Node{
		{
			Name:       "client-1",
			Tags:       []string{"backupclient"},
			Attributes: map[string]any{"opscode_backup": map[string]any{"targets": []any{"siteA"}}},
		},
		{
			Name:       "client-2",
			Tags:       []string{"backupclient"},
			Attributes: map[string]any{"opscode_backup": map[string]any{"targets": []any{"siteB", "siteC"}}},
		},
		{
			Name:       "web-1",
			Tags:       []string{"web"},
			Attributes: map[string]any{"opscode_backup": map[string]any{"targets": []any{"ignored"}}},
		},
	}
}

func newFixture(t *testing.T, settings Settings, dryRun bool, nodes ...interfaces.Node) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr", "local", "bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc", "cron.d"), 0o755))

	system := newFakeSystem()
	host := &converge.Host{
		Root:     root,
		Runner:   system,
		Accounts: currentAccounts{},
		DryRun:   dryRun,
		Log:      logger,
	}

	f := &fixture{
		root:    root,
		system:  system,
		secrets: new(secrets.MockSecretProvider),
		nodes:   registry.NewMemoryRegistry(nodes...),
	}
	f.recipe = NewRecipe(settings, f.secrets, f.nodes, assets.NewEmbeddedSource(), converge.NewApplier(host, logger), logger)
	return f
}

func (f *fixture) withKey(key string) *fixture {
	f.secrets.On("GetItem", mock.Anything, "secrets", "production").
		Return(map[string]string{"id": "production", "rsync-backups-user.priv": key}, nil)
	return f
}

func productionSettings() Settings {
	s := DefaultSettings()
	s.Environment = "production"
	return s
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func mode(t *testing.T, path string) os.FileMode {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Mode().Perm()
}

func TestRecipe_Converge(t *testing.T) {
	key := testPrivateKey(t)
	f := newFixture(t, productionSettings(), false, scenarioNodes()...).withKey(key)

	report, err := f.recipe.Converge(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	var order []string
	for _, res := range report.Results {
		order = append(order, res.Resource)
	}
	assert.Equal(t, []string{
		"package[ruby]",
		"file[/usr/local/bin/backup-rotate]",
		"package[rsync]",
		"user[rsync]",
		"directory[/backup]",
		"directory[/backup/.ssh]",
		"file[/backup/.ssh/id_rsa]",
		"directory[/backup/siteA]",
		"directory[/backup/siteB]",
		"directory[/backup/siteC]",
		"cron_file[/etc/cron.d/backup-rotate-cron]",
	}, order)

	// ruby is already on PATH
	assert.True(t, report.Results[0].Skipped)
	assert.Contains(t, f.system.commands, "useradd --system -c Rsync User -d /backup -s /bin/bash rsync")

	backup := filepath.Join(f.root, "backup")
	entries, err := os.ReadDir(backup)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{".ssh", "siteA", "siteB", "siteC"}, names)

	assert.Equal(t, os.FileMode(0o755), mode(t, backup))
	assert.Equal(t, os.FileMode(0o755), mode(t, filepath.Join(backup, "siteB")))
	assert.Equal(t, os.FileMode(0o700), mode(t, filepath.Join(backup, ".ssh")))
	assert.Equal(t, os.FileMode(0o600), mode(t, filepath.Join(backup, ".ssh", "id_rsa")))
	assert.Equal(t, key, readFile(t, filepath.Join(backup, ".ssh", "id_rsa")))

	script := filepath.Join(f.root, "usr", "local", "bin", "backup-rotate")
	assert.Equal(t, os.FileMode(0o755), mode(t, script))
	assert.True(t, strings.HasPrefix(readFile(t, script), "#!/usr/bin/env ruby"))

	cron := filepath.Join(f.root, "etc", "cron.d", "backup-rotate-cron")
	assert.Equal(t, os.FileMode(0o600), mode(t, cron))
	content := readFile(t, cron)
	assert.Contains(t, content, "0 3 * * * root /usr/local/bin/backup-rotate /backup/siteA\n")
	assert.Contains(t, content, "7 3 * * * root /usr/local/bin/backup-rotate /backup/siteB\n")
	assert.Contains(t, content, "14 3 * * * root /usr/local/bin/backup-rotate /backup/siteC\n")
	assert.NotContains(t, content, "ignored")

	f.secrets.AssertExpectations(t)
}

func TestRecipe_ConvergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, productionSettings(), false, scenarioNodes()...).withKey(testPrivateKey(t))

	_, err := f.recipe.Converge(ctx)
	require.NoError(t, err)

	report, err := f.recipe.Converge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Changed())
	assert.Equal(t, 1, strings.Count(strings.Join(f.system.commands, "\n"), "useradd"))
}

func TestRecipe_DuplicateTargets(t *testing.T) {
	nodes := scenarioNodes()
	nodes[1].Attributes = map[string]any{"opscode_backup": map[string]any{"targets": []any{"siteA", "siteB"}}}
	f := newFixture(t, productionSettings(), false, nodes...).withKey(testPrivateKey(t))

	report, err := f.recipe.Converge(context.Background())
	require.NoError(t, err)

	var siteA []converge.Result
	for _, res := range report.Results {
		if res.Resource == "directory[/backup/siteA]" {
			siteA = append(siteA, res)
		}
	}
	require.Len(t, siteA, 2)
	assert.True(t, siteA[0].Changed)
	assert.False(t, siteA[1].Changed)

	entries, err := os.ReadDir(filepath.Join(f.root, "backup"))
	require.NoError(t, err)
	assert.Len(t, entries, 3) // .ssh, siteA, siteB

	// One rotation job per directory
	content := readFile(t, filepath.Join(f.root, "etc", "cron.d", "backup-rotate-cron"))
	assert.Equal(t, 1, strings.Count(content, "/backup/siteA\n"))
}

func TestRecipe_ClientWithoutTargets(t *testing.T) {
	nodes := []interfaces.Node{
		{Name: "client-1", Tags: []string{"backupclient"}},
		{Name: "client-2", Tags: []string{"backupclient"}, Attributes: map[string]any{"opscode_backup": map[string]any{}}},
	}
	f := newFixture(t, productionSettings(), false, nodes...).withKey(testPrivateKey(t))

	_, err := f.recipe.Converge(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(f.root, "backup"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, converge.ValidateCronTable([]byte(readFile(t, filepath.Join(f.root, "etc", "cron.d", "backup-rotate-cron")))))
}

func TestRecipe_FailuresLeaveHostUntouched(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		nodes   []interfaces.Node
		wantErr error
	}{
		{
			name: "missing secret item",
			setup: func(f *fixture) {
				f.secrets.On("GetItem", mock.Anything, "secrets", "production").
					Return(nil, interfaces.ErrSecretNotFound)
			},
			nodes:   scenarioNodes(),
			wantErr: interfaces.ErrSecretNotFound,
		},
		{
			name: "missing secret key",
			setup: func(f *fixture) {
				f.secrets.On("GetItem", mock.Anything, "secrets", "production").
					Return(map[string]string{"other": "x"}, nil)
			},
			nodes:   scenarioNodes(),
			wantErr: interfaces.ErrSecretNotFound,
		},
		{
			name: "secret backend down",
			setup: func(f *fixture) {
				f.secrets.On("GetItem", mock.Anything, "secrets", "production").
					Return(nil, interfaces.ErrSecretBackendUnavailable)
			},
			nodes:   scenarioNodes(),
			wantErr: interfaces.ErrSecretBackendUnavailable,
		},
		{
			name:  "path traversal target",
			setup: func(f *fixture) { f.withKey("KEY") },
			nodes: []interfaces.Node{{
				Name:       "evil",
				Tags:       []string{"backupclient"},
				Attributes: map[string]any{"opscode_backup": map[string]any{"targets": []any{"ok", "../etc"}}},
			}},
			wantErr: ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, productionSettings(), false, tt.nodes...)
			tt.setup(f)

			report, err := f.recipe.Converge(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, report)

			assert.Empty(t, f.system.commands)
			assert.NoDirExists(t, filepath.Join(f.root, "backup"))
			assert.NoFileExists(t, filepath.Join(f.root, "usr", "local", "bin", "backup-rotate"))
		})
	}
}

func TestRecipe_RegistryFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	host := &converge.Host{Root: t.TempDir(), Runner: newFakeSystem(), Accounts: currentAccounts{}, Log: logger}

	secretProvider := new(secrets.MockSecretProvider)
	secretProvider.On("GetItem", mock.Anything, "secrets", "production").
		Return(map[string]string{"rsync-backups-user.priv": "KEY"}, nil)

	nodes := new(registry.MockNodeQuery)
	nodes.On("Search", mock.Anything, "tags:backupclient").
		Return(nil, errors.Join(interfaces.ErrRegistryUnavailable, errors.New("connection refused")))

	recipe := NewRecipe(productionSettings(), secretProvider, nodes, assets.NewEmbeddedSource(), converge.NewApplier(host, logger), logger)

	_, err := recipe.Converge(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrRegistryUnavailable)
	nodes.AssertExpectations(t)
}

func TestRecipe_MissingAsset(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	host := &converge.Host{Root: t.TempDir(), Runner: newFakeSystem(), Accounts: currentAccounts{}, Log: logger}

	secretProvider := new(secrets.MockSecretProvider)
	secretProvider.On("GetItem", mock.Anything, "secrets", "production").
		Return(map[string]string{"rsync-backups-user.priv": "KEY"}, nil)

	source := assets.NewMockAssetSource("bucket")
	source.On("Fetch", mock.Anything, assets.RotateScriptAsset).Return(nil, interfaces.ErrAssetNotFound)

	recipe := NewRecipe(productionSettings(), secretProvider, registry.NewMemoryRegistry(), source, converge.NewApplier(host, logger), logger)

	_, err := recipe.Converge(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrAssetNotFound)
}

func TestRecipe_PruneOrphans(t *testing.T) {
	for _, prune := range []bool{false, true} {
		t.Run(map[bool]string{false: "append only", true: "prune"}[prune], func(t *testing.T) {
			settings := productionSettings()
			settings.PruneOrphans = prune
			f := newFixture(t, settings, false, scenarioNodes()...).withKey("KEY")

			backup := filepath.Join(f.root, "backup")
			require.NoError(t, os.MkdirAll(filepath.Join(backup, "retired", "current"), 0o755))
			require.NoError(t, os.MkdirAll(filepath.Join(backup, ".cache"), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(backup, "notes.txt"), []byte("x"), 0o644))

			_, err := f.recipe.Converge(context.Background())
			require.NoError(t, err)

			assert.DirExists(t, filepath.Join(backup, "siteA"))
			assert.DirExists(t, filepath.Join(backup, ".cache"))
			assert.FileExists(t, filepath.Join(backup, "notes.txt"))
			if prune {
				assert.NoDirExists(t, filepath.Join(backup, "retired"))
			} else {
				assert.DirExists(t, filepath.Join(backup, "retired"))
			}
		})
	}
}

func TestRecipe_DryRun(t *testing.T) {
	f := newFixture(t, productionSettings(), true, scenarioNodes()...).withKey("KEY")

	report, err := f.recipe.Converge(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Positive(t, report.Changed())

	assert.NoDirExists(t, filepath.Join(f.root, "backup"))
	assert.NoFileExists(t, filepath.Join(f.root, "etc", "cron.d", "backup-rotate-cron"))
	assert.NotContains(t, strings.Join(f.system.commands, "\n"), "useradd")
}

func TestRecipe_Targets(t *testing.T) {
	f := newFixture(t, productionSettings(), false, scenarioNodes()...)

	targets, err := f.recipe.Targets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"siteA", "siteB", "siteC"}, targets)
}

// freshHostAccounts knows only root, as on a host before its first run.
type freshHostAccounts struct{}

func (freshHostAccounts) LookupUser(name string) (int, error) {
	if name != "root" {
		return 0, fmt.Errorf("%w: user %s", converge.ErrUnknownAccount, name)
	}
	return os.Getuid(), nil
}

func (freshHostAccounts) LookupGroup(name string) (int, error) {
	if name != "root" {
		return 0, fmt.Errorf("%w: group %s", converge.ErrUnknownAccount, name)
	}
	return os.Getgid(), nil
}

func TestRecipe_DryRunOnFreshHost(t *testing.T) {
	f := newFixture(t, productionSettings(), true, scenarioNodes()...).withKey("KEY")
	f.recipe.applier.Host().Accounts = freshHostAccounts{}

	report, err := f.recipe.Converge(context.Background())
	require.NoError(t, err)

	byResource := map[string][]string{}
	for _, res := range report.Results {
		byResource[res.Resource] = res.Actions
	}
	assert.Contains(t, byResource["directory[/backup]"], "set owner rsync:rsync")
	assert.Contains(t, byResource["file[/backup/.ssh/id_rsa]"], "set owner rsync:rsync")
	assert.Contains(t, byResource["directory[/backup/siteC]"], "set owner rsync:rsync")
	assert.NoDirExists(t, filepath.Join(f.root, "backup"))

	// Without dry run the missing account is still an error
	f = newFixture(t, productionSettings(), false, scenarioNodes()...).withKey("KEY")
	f.recipe.applier.Host().Accounts = freshHostAccounts{}
	f.system.users["rsync"] = "rsync:x:998:998:Rsync User:/backup:/bin/bash\n"

	_, err = f.recipe.Converge(context.Background())
	assert.ErrorIs(t, err, converge.ErrUnknownAccount)
}

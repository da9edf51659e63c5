package registry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNodeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestFileRegistry_Search(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writeNodeFile(t, dir, "01-db.json", `{
		"name": "db01",
		"chef_environment": "prod",
		"normal": {"tags": ["backupclient"], "opscode_backup": {"targets": ["siteA"]}}
	}`)
	writeNodeFile(t, dir, "02-files.yaml", `
name: files01
chef_environment: prod
normal:
  tags: [backupclient]
  opscode_backup:
    targets: [siteB, siteC]
`)
	writeNodeFile(t, dir, "03-web.json", `{
		"name": "web01",
		"normal": {"tags": ["web"], "opscode_backup": {"targets": ["ignored"]}}
	}`)
	writeNodeFile(t, dir, "README.md", "not a node")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

	reg := NewFileRegistry(dir, logger)
	nodes, err := reg.Search(context.Background(), "tags:backupclient")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "db01", nodes[0].Name)
	assert.Equal(t, "files01", nodes[1].Name)

	targets, ok := nodes[1].Attribute("opscode_backup", "targets")
	require.True(t, ok)
	assert.Equal(t, []any{"siteB", "siteC"}, targets)
}

func TestFileRegistry_NameFromFilename(t *testing.T) {
	dir := t.TempDir()
	writeNodeFile(t, dir, "backup02.yml", "normal:\n  tags: [backupclient]\n")

	nodes, err := NewFileRegistry(dir, slog.New(slog.NewTextHandler(io.Discard, nil))).
		Search(context.Background(), "name:backup02")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, []string{"backupclient"}, nodes[0].Tags)
}

func TestFileRegistry_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewFileRegistry(filepath.Join(t.TempDir(), "missing"), logger).Search(context.Background(), "*:*")
	assert.ErrorIs(t, err, interfaces.ErrRegistryUnavailable)

	dir := t.TempDir()
	writeNodeFile(t, dir, "broken.json", "{")
	_, err = NewFileRegistry(dir, logger).Search(context.Background(), "*:*")
	assert.Error(t, err)

	_, err = NewFileRegistry(dir, logger).Search(context.Background(), "bogus")
	assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)
}

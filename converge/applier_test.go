package converge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backupResources() []Resource {
	return []Resource{
		Directory{Path: "/backup", Ownership: Ownership{Owner: "rsync", Group: "rsync", Mode: 0o755}},
		Directory{Path: "/backup/.ssh", Ownership: Ownership{Owner: "rsync", Group: "rsync", Mode: 0o700}},
		File{Path: "/backup/.ssh/id_rsa", Content: []byte("KEY"), Ownership: Ownership{Owner: "rsync", Group: "rsync", Mode: 0o600}},
		Directory{Path: "/backup/a", Ownership: Ownership{Owner: "rsync", Group: "rsync", Mode: 0o755}},
	}
}

func TestApplier_Apply(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHost(t, false)
	applier := NewApplier(h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	report, err := applier.Apply(ctx, backupResources()...)
	require.NoError(t, err)
	require.Len(t, report.Results, 4)
	assert.Equal(t, 4, report.Changed())
	assert.Equal(t, "directory[/backup]", report.Results[0].Resource)
	assert.Equal(t, "file[/backup/.ssh/id_rsa]", report.Results[2].Resource)
	assert.DirExists(t, filepath.Join(h.Root, "backup", "a"))

	// Converging again changes nothing
	report, err = applier.Apply(ctx, backupResources()...)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Changed())
}

func TestApplier_AbortsOnFirstFailure(t *testing.T) {
	h, _ := newTestHost(t, false)
	applier := NewApplier(h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	report, err := applier.Apply(context.Background(),
		Directory{Path: "/backup", Ownership: Ownership{Mode: 0o755}},
		Directory{Path: "/missing/child", Ownership: Ownership{Mode: 0o755}},
		Directory{Path: "/backup/a", Ownership: Ownership{Mode: 0o755}},
	)
	require.Error(t, err)

	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "directory[/missing/child]", resErr.Resource)
	assert.Len(t, report.Results, 1)

	// Earlier resources are not rolled back, later ones never ran
	assert.DirExists(t, filepath.Join(h.Root, "backup"))
	assert.NoDirExists(t, filepath.Join(h.Root, "backup", "a"))
}

func TestApplier_DryRunMutatesNothing(t *testing.T) {
	h, runner := newTestHost(t, true)
	runner.on("getent passwd rsync", CommandResult{ExitCode: 2})
	runner.on("dpkg-query -W -f=${Status} rsync", CommandResult{ExitCode: 1})
	applier := NewApplier(h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	resources := append([]Resource{
		Package{PackageName: "rsync"},
		rsyncUser,
	}, backupResources()[:1]...)

	report, err := applier.Apply(context.Background(), resources...)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.Changed())
	assert.False(t, runner.ran("apt-get"))
	assert.False(t, runner.ran("useradd"))

	entries, err := os.ReadDir(h.Root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApplier_CancelledContext(t *testing.T) {
	h, _ := newTestHost(t, false)
	applier := NewApplier(h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := applier.Apply(ctx, backupResources()...)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoDirExists(t, filepath.Join(h.Root, "backup"))
}

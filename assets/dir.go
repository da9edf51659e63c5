package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// DirSource serves assets from a local directory.
type DirSource struct {
	baseDir string
	log     *slog.Logger
}

// NewDirSource creates a source reading files from baseDir.
func NewDirSource(baseDir string, log *slog.Logger) *DirSource {
	return &DirSource{baseDir: baseDir, log: log}
}

// Fetch reads the named file. Returns ErrAssetNotFound if it doesn't exist.
func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validAssetName(name); err != nil {
		return nil, err
	}

	filePath := filepath.Join(s.baseDir, name)
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAssetNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	s.log.Debug("Fetched asset from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Name returns a unique identifier for this source.
func (s *DirSource) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// validAssetName rejects names that would escape the source root.
func validAssetName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid asset name %q", name)
	}
	return nil
}

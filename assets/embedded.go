package assets

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

const (
	// RotateScriptAsset is the rotation script installed to /usr/local/bin.
	RotateScriptAsset = "backup-rotate"

	// RotateCronAsset is the template for the rotation cron file.
	RotateCronAsset = "offsite-rotate-cron.tmpl"
)

//go:embed files/*
var embeddedFiles embed.FS

// EmbeddedSource serves the assets compiled into the binary.
type EmbeddedSource struct{}

// NewEmbeddedSource returns the built-in asset source.
func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{}
}

// Fetch returns the embedded asset.
func (s *EmbeddedSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validAssetName(name); err != nil {
		return nil, err
	}

	data, err := embeddedFiles.ReadFile(path.Join("files", name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAssetNotFound, name)
	}
	return data, err
}

// Name returns a unique identifier for this source.
func (s *EmbeddedSource) Name() string {
	return "embedded"
}

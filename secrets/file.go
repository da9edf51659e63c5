package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// FileProvider implements SecretProvider over data bag JSON files laid out
// as <baseDir>/<bag>/<item>.json.
type FileProvider struct {
	baseDir string
	log     *slog.Logger
}

// NewFileProvider creates a provider reading data bags under baseDir.
func NewFileProvider(baseDir string, log *slog.Logger) *FileProvider {
	return &FileProvider{baseDir: baseDir, log: log}
}

// GetItem reads and decodes the item file. The "id" key is not returned.
func (p *FileProvider) GetItem(ctx context.Context, bag, item string) (map[string]string, error) {
	if err := validName(bag); err != nil {
		return nil, err
	}
	if err := validName(item); err != nil {
		return nil, err
	}

	path := filepath.Join(p.baseDir, bag, item+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		p.log.Debug("Data bag item not found", slog.String("path", path))
		return nil, fmt.Errorf("%w: %s/%s", interfaces.ErrSecretNotFound, bag, item)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSecretBackendUnavailable, err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode data bag item %s: %w", path, err)
	}

	values := stringValues(decoded)
	delete(values, "id")

	p.log.Debug("Fetched data bag item",
		slog.String("path", path),
		slog.Int("keys", len(values)))

	return values, nil
}

// Name returns a unique identifier for this provider.
func (p *FileProvider) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(p.baseDir))
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid data bag name %q", name)
	}
	return nil
}

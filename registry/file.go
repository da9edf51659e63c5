package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
	"gopkg.in/yaml.v3"
)

// FileRegistry implements NodeQuery over a directory of node documents.
// Each *.json, *.yaml or *.yml file holds one node; files are read on every
// search, in lexical order.
type FileRegistry struct {
	dir string
	log *slog.Logger
}

// NewFileRegistry creates a registry reading node documents from dir.
func NewFileRegistry(dir string, log *slog.Logger) *FileRegistry {
	return &FileRegistry{dir: dir, log: log}
}

// Search implements interfaces.NodeQuery.
func (r *FileRegistry) Search(ctx context.Context, query string) ([]interfaces.Node, error) {
	match, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRegistryUnavailable, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := []interfaces.Node{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		doc, ok, err := readNodeDocument(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.log.Debug("Skipping non-node file", slog.String("path", path))
			continue
		}

		node := doc.Node()
		if node.Name == "" {
			node.Name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		if match(node) {
			result = append(result, node)
		}
	}

	r.log.Debug("Searched file registry",
		slog.String("dir", r.dir),
		slog.String("query", query),
		slog.Int("matches", len(result)))

	return result, nil
}

func readNodeDocument(path string) (NodeDocument, bool, error) {
	var doc NodeDocument

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return doc, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return doc, false, fmt.Errorf("failed to read node document %s: %w", path, err)
	}

	if ext == ".json" {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return doc, false, fmt.Errorf("failed to decode node document %s: %w", path, err)
	}
	return doc, true, nil
}

package registry

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// NewQueryFromURI creates a NodeQuery from a location URI.
//
// Supported schemes:
//   - file:///path/to/nodes - directory of node documents
//   - http:// and https:// - registry search API
//
// token is only used by the HTTP backend.
func NewQueryFromURI(locationURI, token string, log *slog.Logger) (interfaces.NodeQuery, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URI %q: %w", locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + "/" + strings.TrimPrefix(path, "/")
		}
		if path == "" {
			return nil, fmt.Errorf("empty path in file URI: %s", locationURI)
		}
		log.Debug("Creating file registry", slog.String("dir", path))
		return NewFileRegistry(path, log), nil
	case "http", "https":
		log.Debug("Creating HTTP registry", slog.String("url", locationURI))
		return NewHTTPRegistry(locationURI, token, log), nil
	default:
		return nil, fmt.Errorf("unsupported registry scheme: %s", u.Scheme)
	}
}

package assets

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// NewSourceFromURI creates an asset source from a location URI.
//
// Supported schemes:
//   - embedded:// - built-in defaults
//   - file:///absolute/path/ or file://./relative/path/
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com&path_style=true
func NewSourceFromURI(locationURI string, log *slog.Logger) (interfaces.AssetSource, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid asset URI %q: %w", locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "embedded":
		return NewEmbeddedSource(), nil
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + "/" + strings.TrimPrefix(path, "/")
		}
		if path == "" {
			return nil, fmt.Errorf("empty path in file URI: %s", locationURI)
		}
		log.Debug("Creating file asset source", slog.String("dir", path))
		return NewDirSource(path, log), nil
	case "s3":
		return createS3Source(u, log)
	default:
		return nil, fmt.Errorf("unsupported asset scheme: %s", u.Scheme)
	}
}

func createS3Source(u *url.URL, log *slog.Logger) (*S3Source, error) {
	log.Debug("Creating S3 asset source", slog.String("bucket", u.Host))

	query := u.Query()
	opts := S3Options{
		Bucket:    u.Host,
		Prefix:    strings.TrimPrefix(u.Path, "/"),
		Region:    query.Get("region"),
		Endpoint:  query.Get("endpoint"),
		PathStyle: query.Get("path_style") == "true",
	}
	if u.User != nil {
		opts.AccessKey = u.User.Username()
		opts.SecretKey, _ = u.User.Password()
	}

	return NewS3Source(opts, log)
}

// NewSourcesFromURIs builds a ChainSource from an ordered list of URIs.
// The embedded defaults are always appended as the last resort.
func NewSourcesFromURIs(locationURIs []string, log *slog.Logger) (*ChainSource, error) {
	sources := make([]interfaces.AssetSource, 0, len(locationURIs)+1)
	hasEmbedded := false

	for _, uri := range locationURIs {
		source, err := NewSourceFromURI(uri, log)
		if err != nil {
			return nil, err
		}
		if _, ok := source.(*EmbeddedSource); ok {
			hasEmbedded = true
		}
		sources = append(sources, source)
	}

	if !hasEmbedded {
		sources = append(sources, NewEmbeddedSource())
	}
	return NewChainSource(sources, log), nil
}

package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// ChainSource implements AssetSource over several sources with fallback.
type ChainSource struct {
	sources []interfaces.AssetSource
	log     *slog.Logger
}

// NewChainSource creates a source that tries each of sources in order.
func NewChainSource(sources []interfaces.AssetSource, logger *slog.Logger) *ChainSource {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChainSource{
		sources: sources,
		log:     logger,
	}
}

// Fetch returns the asset from the first source that has it.
// If every source misses, the result wraps ErrAssetNotFound; if any source
// failed for another reason, those errors are returned instead.
func (c *ChainSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, source := range c.sources {
		data, err := source.Fetch(ctx, name)
		if err == nil {
			c.log.Debug("Fetched asset",
				slog.String("source", source.Name()),
				slog.String("asset", name),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrAssetNotFound) {
			continue
		}

		errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		c.log.Debug("Failed to fetch from source",
			slog.String("source", source.Name()),
			slog.String("asset", name),
			"err", err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("all sources failed to fetch %s: %w", name, errors.Join(errs...))
	}
	return nil, fmt.Errorf("%w: %s", interfaces.ErrAssetNotFound, name)
}

// Name returns the combined name of all sources.
func (c *ChainSource) Name() string {
	names := make([]string, 0, len(c.sources))
	for _, source := range c.sources {
		names = append(names, source.Name())
	}
	return "chain:[" + strings.Join(names, ",") + "]"
}

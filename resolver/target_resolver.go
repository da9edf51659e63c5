package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

const (
	// DefaultClientTag marks nodes whose data is backed up to this host.
	DefaultClientTag = "backupclient"

	// DefaultTargetsAttribute is the node attribute listing target names.
	DefaultTargetsAttribute = "opscode_backup.targets"
)

// TargetResolver resolves backup target names from the node registry.
type TargetResolver struct {
	query         interfaces.NodeQuery
	tag           string
	attributePath []string
	log           *slog.Logger
}

// Option customizes a TargetResolver.
type Option func(*TargetResolver)

// WithTag overrides the tag identifying backup client nodes.
func WithTag(tag string) Option {
	return func(r *TargetResolver) {
		r.tag = tag
	}
}

// WithAttributePath overrides the dotted attribute path holding target names.
func WithAttributePath(dotted string) Option {
	return func(r *TargetResolver) {
		r.attributePath = interfaces.AttributePath(dotted)
	}
}

// NewTargetResolver creates a resolver searching query.
func NewTargetResolver(query interfaces.NodeQuery, log *slog.Logger, opts ...Option) *TargetResolver {
	r := &TargetResolver{
		query:         query,
		tag:           DefaultClientTag,
		attributePath: interfaces.AttributePath(DefaultTargetsAttribute),
		log:           log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query returns the search query used to find backup client nodes.
func (r *TargetResolver) Query() string {
	return "tags:" + r.tag
}

// Resolve returns the concatenated target names of all backup client nodes.
// The result is never nil on success.
func (r *TargetResolver) Resolve(ctx context.Context) ([]string, error) {
	start := time.Now()

	nodes, err := r.query.Search(ctx, r.Query())
	if err != nil {
		return nil, fmt.Errorf("failed to search for backup clients: %w", err)
	}

	targets := []string{}
	for _, node := range nodes {
		nodeTargets := r.nodeTargets(node)
		targets = append(targets, nodeTargets...)
	}

	r.log.Info("Resolved backup targets",
		slog.Int("clients", len(nodes)),
		slog.Int("targets", len(targets)),
		slog.Duration("duration", time.Since(start)))

	return targets, nil
}

func (r *TargetResolver) nodeTargets(node interfaces.Node) []string {
	attr, ok := node.Attribute(r.attributePath...)
	if !ok || attr == nil {
		r.log.Debug("Backup client declares no targets", slog.String("node", node.Name))
		return nil
	}

	targets, ok := Flatten(attr)
	if !ok {
		r.log.Warn("Ignoring malformed backup targets attribute",
			slog.String("node", node.Name),
			slog.String("type", fmt.Sprintf("%T", attr)))
		return nil
	}
	return targets
}

// Flatten turns an attribute value into a list of names. Nested lists are
// flattened depth-first and a bare string counts as a one-element list.
// It reports false if any leaf is not a string.
func Flatten(v any) ([]string, bool) {
	switch vv := v.(type) {
	case string:
		return []string{vv}, true
	case []string:
		return append([]string{}, vv...), true
	case []any:
		out := []string{}
		for _, item := range vv {
			if item == nil {
				continue
			}
			inner, ok := Flatten(item)
			if !ok {
				return nil, false
			}
			out = append(out, inner...)
		}
		return out, true
	default:
		return nil, false
	}
}

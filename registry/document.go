package registry

import (
	"slices"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// NodeDocument is the stored form of a registered node.
type NodeDocument struct {
	Name        string         `json:"name" yaml:"name"`
	Environment string         `json:"chef_environment" yaml:"chef_environment"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Default     map[string]any `json:"default,omitempty" yaml:"default,omitempty"`
	Normal      map[string]any `json:"normal,omitempty" yaml:"normal,omitempty"`
	Override    map[string]any `json:"override,omitempty" yaml:"override,omitempty"`
	Automatic   map[string]any `json:"automatic,omitempty" yaml:"automatic,omitempty"`
}

// Node converts the document into its merged search view.
func (d NodeDocument) Node() interfaces.Node {
	attrs := map[string]any{}
	for _, level := range []map[string]any{d.Default, d.Normal, d.Override, d.Automatic} {
		deepMerge(attrs, level)
	}

	tags := slices.Clone(d.Tags)
	if normalTags, ok := d.Normal["tags"]; ok {
		for _, t := range toStrings(normalTags) {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	delete(attrs, "tags")

	return interfaces.Node{
		Name:        d.Name,
		Environment: d.Environment,
		Tags:        tags,
		Attributes:  attrs,
	}
}

// deepMerge copies src into dst; nested maps are merged, anything else replaced.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			fresh := map[string]any{}
			deepMerge(fresh, srcMap)
			dst[k] = fresh
			continue
		}
		dst[k] = v
	}
}

func toStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vv}
	default:
		return nil
	}
}

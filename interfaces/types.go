package interfaces

import (
	"slices"
	"strings"
)

// Node is a registered host as seen through the registry search index.
// Attributes is the merged attribute view of the node.
type Node struct {
	Name        string         `json:"name" yaml:"name"`
	Environment string         `json:"chef_environment" yaml:"chef_environment"`
	Tags        []string       `json:"tags" yaml:"tags"`
	Attributes  map[string]any `json:"attributes" yaml:"attributes"`
}

// HasTag reports whether the node carries the given tag.
func (n Node) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// Attribute walks the nested attribute maps along path.
// It returns false if any segment is missing or is not a map.
func (n Node) Attribute(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}

	var cur any = n.Attributes
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// AttributePath splits a dotted attribute path such as "opscode_backup.targets".
func AttributePath(dotted string) []string {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

// asMap accepts both decoded JSON maps and YAML maps with interface keys.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// Matcher reports whether a node satisfies a parsed query.
type Matcher func(node interfaces.Node) bool

// ParseQuery compiles a field:value search term into a Matcher.
func ParseQuery(query string) (Matcher, error) {
	query = strings.TrimSpace(query)
	field, value, ok := strings.Cut(query, ":")
	if !ok || field == "" || value == "" || strings.ContainsAny(query, " \t") {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrInvalidQuery, query)
	}

	if field == "*" {
		if value != "*" {
			return nil, fmt.Errorf("%w: %q", interfaces.ErrInvalidQuery, query)
		}
		return func(interfaces.Node) bool { return true }, nil
	}

	switch field {
	case "tags", "tag":
		return func(n interfaces.Node) bool {
			if value == "*" {
				return len(n.Tags) > 0
			}
			return n.HasTag(value)
		}, nil
	case "name":
		return func(n interfaces.Node) bool {
			return value == "*" || n.Name == value
		}, nil
	case "chef_environment":
		return func(n interfaces.Node) bool {
			return value == "*" || n.Environment == value
		}, nil
	}

	path := interfaces.AttributePath(field)
	return func(n interfaces.Node) bool {
		attr, ok := n.Attribute(path...)
		if !ok {
			return false
		}
		if value == "*" {
			return true
		}
		return attributeMatches(attr, value)
	}, nil
}

func attributeMatches(attr any, value string) bool {
	switch v := attr.(type) {
	case string:
		return v == value
	case []string:
		return slices.Contains(v, value)
	case []any:
		for _, item := range v {
			if attributeMatches(item, value) {
				return true
			}
		}
		return false
	default:
		return fmt.Sprint(v) == value
	}
}

// filterNodes returns the nodes matching query, preserving order.
func filterNodes(nodes []interfaces.Node, query string) ([]interfaces.Node, error) {
	match, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}

	result := []interfaces.Node{}
	for _, n := range nodes {
		if match(n) {
			result = append(result, n)
		}
	}
	return result, nil
}

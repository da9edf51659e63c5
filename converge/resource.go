package converge

import (
	"context"
	"fmt"
)

// Resource is a unit of desired host state.
type Resource interface {
	// Kind names the resource type, e.g. "directory".
	Kind() string
	// Name identifies the resource within its kind, e.g. a path.
	Name() string
	// Apply makes the host match the resource.
	Apply(ctx context.Context, h *Host) (Result, error)
}

// Result describes what applying a resource did.
type Result struct {
	Resource string   `json:"resource"`
	Changed  bool     `json:"changed"`
	Skipped  bool     `json:"skipped,omitempty"`
	Actions  []string `json:"actions,omitempty"`
}

// ID returns the display identifier of a resource, e.g. "directory[/backup]".
func ID(r Resource) string {
	return fmt.Sprintf("%s[%s]", r.Kind(), r.Name())
}

func newResult(r Resource, actions []string) Result {
	return Result{
		Resource: ID(r),
		Changed:  len(actions) > 0,
		Actions:  actions,
	}
}

// ResourceError reports the resource whose application failed.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

package offsite

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ruteri/offsite-backup-provisioning/converge"
)

// ErrInvalidTarget is returned for target names that are not a single path
// component below the backup root.
var ErrInvalidTarget = errors.New("invalid backup target")

// ValidateTarget rejects empty names, "." and "..", and names containing a
// path separator.
func ValidateTarget(target string) error {
	switch {
	case target == "":
		return fmt.Errorf("%w: empty name", ErrInvalidTarget)
	case target == "." || target == "..":
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	case strings.ContainsAny(target, "/\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidTarget, target)
	}
	return nil
}

// ValidateTargets checks every target and joins all failures.
func ValidateTargets(targets []string) error {
	var errs []error
	for _, t := range targets {
		if err := ValidateTarget(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TargetDirectories returns one directory resource per target, in order.
// Duplicate targets yield duplicate resources.
func TargetDirectories(root, owner, group string, targets []string) []converge.Resource {
	resources := make([]converge.Resource, 0, len(targets))
	for _, t := range targets {
		resources = append(resources, converge.Directory{
			Path: path.Join(root, t),
			Ownership: converge.Ownership{
				Owner: owner,
				Group: group,
				Mode:  backupDirMode,
			},
		})
	}
	return resources
}

// ProvisionTargets ensures a directory exists under root for every target.
// All targets are validated before any directory is touched. The first
// failure aborts; directories created before it are kept.
func ProvisionTargets(ctx context.Context, applier *converge.Applier, root, owner, group string, targets []string) (*converge.Report, error) {
	if err := ValidateTargets(targets); err != nil {
		return nil, err
	}
	return applier.Apply(ctx, TargetDirectories(root, owner, group, targets)...)
}

// UniqueTargets drops repeated names, keeping first occurrences in order.
func UniqueTargets(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	unique := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}

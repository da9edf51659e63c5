package converge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Directory ensures a directory exists with the given ownership.
// The parent directory must already exist.
type Directory struct {
	Path string
	Ownership
}

func (d Directory) Kind() string { return "directory" }
func (d Directory) Name() string { return d.Path }

// Apply implements Resource.
func (d Directory) Apply(ctx context.Context, h *Host) (Result, error) {
	path := h.Path(d.Path)

	var actions []string
	missing := false

	// Stat follows symlinks; a link to a directory counts as the directory.
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		missing = true
		actions = append(actions, "create")
		if !h.DryRun {
			if err := os.Mkdir(path, d.Mode.Perm()); err != nil {
				return Result{}, fmt.Errorf("could not create directory: %w", err)
			}
			missing = false
		}
	case err != nil:
		return Result{}, fmt.Errorf("could not stat %s: %w", path, err)
	case !info.IsDir():
		return Result{}, fmt.Errorf("%s exists and is not a directory", path)
	}

	attrActions, err := ensureOwnership(h, path, d.Ownership, missing)
	if err != nil {
		return Result{}, err
	}
	actions = append(actions, attrActions...)

	return newResult(d, actions), nil
}

// EnsureDirectory applies a Directory resource.
func EnsureDirectory(ctx context.Context, h *Host, path, owner, group string, mode os.FileMode) (Result, error) {
	return Directory{Path: path, Ownership: Ownership{Owner: owner, Group: group, Mode: mode}}.Apply(ctx, h)
}

// DirectoryAbsent ensures a directory and everything below it is removed.
type DirectoryAbsent struct {
	Path string
}

func (d DirectoryAbsent) Kind() string { return "directory_absent" }
func (d DirectoryAbsent) Name() string { return d.Path }

// Apply implements Resource.
func (d DirectoryAbsent) Apply(ctx context.Context, h *Host) (Result, error) {
	path := h.Path(d.Path)

	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newResult(d, nil), nil
	} else if err != nil {
		return Result{}, fmt.Errorf("could not stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s is not a directory", path)
	}

	if !h.DryRun {
		if err := os.RemoveAll(path); err != nil {
			return Result{}, fmt.Errorf("could not remove directory: %w", err)
		}
	}
	return newResult(d, []string{"delete"}), nil
}

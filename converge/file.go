package converge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File ensures a regular file has exactly Content and the given ownership.
// Content is replaced atomically; the parent directory must already exist.
type File struct {
	Path    string
	Content []byte
	Ownership
}

func (f File) Kind() string { return "file" }
func (f File) Name() string { return f.Path }

// Apply implements Resource.
func (f File) Apply(ctx context.Context, h *Host) (Result, error) {
	actions, err := writeFile(h, h.Path(f.Path), f.Content, f.Ownership)
	if err != nil {
		return Result{}, err
	}
	return newResult(f, actions), nil
}

// EnsureFile applies a File resource.
func EnsureFile(ctx context.Context, h *Host, path string, content []byte, owner, group string, mode os.FileMode) (Result, error) {
	return File{Path: path, Content: content, Ownership: Ownership{Owner: owner, Group: group, Mode: mode}}.Apply(ctx, h)
}

func writeFile(h *Host, path string, content []byte, o Ownership) ([]string, error) {
	var actions []string
	missing := false

	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		missing = true
		actions = append(actions, "create")
	case err != nil:
		return nil, fmt.Errorf("could not stat %s: %w", path, err)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("%s exists and is not a regular file", path)
	default:
		existing, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", path, err)
		}
		if !bytes.Equal(existing, content) {
			actions = append(actions, "update content")
		}
	}

	if len(actions) > 0 && !h.DryRun {
		if err := replaceFile(path, content, o.Mode.Perm()); err != nil {
			return nil, err
		}
		missing = false
	}

	attrActions, err := ensureOwnership(h, path, o, missing)
	if err != nil {
		return nil, err
	}
	return append(actions, attrActions...), nil
}

// replaceFile writes content to a temporary file next to path and renames it
// into place.
func replaceFile(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("could not change mode of %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("could not replace %s: %w", path, err)
	}
	return nil
}

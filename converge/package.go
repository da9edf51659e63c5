package converge

import (
	"context"
	"fmt"
	"strings"
)

// Package ensures a system package is installed through apt.
type Package struct {
	PackageName string

	// NotIf skips the resource when the command exits zero.
	NotIf *Command
}

func (p Package) Kind() string { return "package" }
func (p Package) Name() string { return p.PackageName }

// Apply implements Resource.
func (p Package) Apply(ctx context.Context, h *Host) (Result, error) {
	if p.NotIf != nil {
		guard, err := h.Runner.Run(ctx, *p.NotIf)
		if err != nil {
			return Result{}, err
		}
		if guard.Succeeded() {
			h.Log.Debug("Skipping package, not_if guard passed",
				"package", p.PackageName,
				"guard", p.NotIf.String())
			res := newResult(p, nil)
			res.Skipped = true
			return res, nil
		}
	}

	installed, err := p.installed(ctx, h)
	if err != nil {
		return Result{}, err
	}
	if installed {
		return newResult(p, nil), nil
	}

	if !h.DryRun {
		res, err := h.Runner.Run(ctx, Command{
			Name: "apt-get",
			Args: []string{"install", "-y", "-q", p.PackageName},
			Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
		})
		if err != nil {
			return Result{}, err
		}
		if !res.Succeeded() {
			return Result{}, fmt.Errorf("apt-get install %s exited with %d: %s",
				p.PackageName, res.ExitCode, strings.TrimSpace(res.Stderr))
		}
	}

	return newResult(p, []string{"install"}), nil
}

func (p Package) installed(ctx context.Context, h *Host) (bool, error) {
	res, err := h.Runner.Run(ctx, Command{
		Name: "dpkg-query",
		Args: []string{"-W", "-f=${Status}", p.PackageName},
	})
	if err != nil {
		return false, err
	}
	// dpkg-query exits 1 for unknown packages.
	return res.Succeeded() && strings.Contains(res.Stdout, "install ok installed"), nil
}

// EnsurePackage applies a Package resource.
func EnsurePackage(ctx context.Context, h *Host, name string, notIf *Command) (Result, error) {
	return Package{PackageName: name, NotIf: notIf}.Apply(ctx, h)
}

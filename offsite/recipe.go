package offsite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/ruteri/offsite-backup-provisioning/assets"
	"github.com/ruteri/offsite-backup-provisioning/converge"
	"github.com/ruteri/offsite-backup-provisioning/interfaces"
	"github.com/ruteri/offsite-backup-provisioning/resolver"
	"github.com/ruteri/offsite-backup-provisioning/secrets"
)

// Recipe converges a host into an offsite backup server.
type Recipe struct {
	settings Settings
	secrets  interfaces.SecretProvider
	resolver *resolver.TargetResolver
	assets   interfaces.AssetSource
	applier  *converge.Applier
	log      *slog.Logger
}

// NewRecipe wires a recipe. Backup targets are resolved through registry.
func NewRecipe(
	settings Settings,
	secretProvider interfaces.SecretProvider,
	registry interfaces.NodeQuery,
	assetSource interfaces.AssetSource,
	applier *converge.Applier,
	log *slog.Logger,
) *Recipe {
	return &Recipe{
		settings: settings,
		secrets:  secretProvider,
		resolver: resolver.NewTargetResolver(registry, log,
			resolver.WithTag(settings.ClientTag),
			resolver.WithAttributePath(settings.TargetsAttribute)),
		assets:   assetSource,
		applier:  applier,
		log:      log,
	}
}

// Targets resolves and validates the backup targets declared by clients.
func (r *Recipe) Targets(ctx context.Context) ([]string, error) {
	targets, err := r.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateTargets(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Plan gathers every input and returns the ordered resource list. It does not
// modify the host, so any failure here leaves the host untouched.
func (r *Recipe) Plan(ctx context.Context) ([]converge.Resource, error) {
	s := r.settings

	privateKey, err := secrets.Lookup(ctx, r.secrets, s.SecretsBag, s.Environment, s.SecretsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load rsync private key: %w", err)
	}
	checkPrivateKey(r.log, privateKey)

	rotateScript, err := r.assets.Fetch(ctx, assets.RotateScriptAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to load rotate script: %w", err)
	}
	cronSource, err := r.assets.Fetch(ctx, assets.RotateCronAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to load cron template: %w", err)
	}

	targets, err := r.Targets(ctx)
	if err != nil {
		return nil, err
	}

	backupOwner := converge.Ownership{Owner: s.User, Group: s.Group}
	rootOwner := converge.Ownership{Owner: "root", Group: "root"}
	sshDir := path.Join(s.BackupRoot, ".ssh")

	resources := []converge.Resource{
		converge.Package{
			PackageName: "ruby",
			NotIf:       &converge.Command{Name: "which", Args: []string{"ruby"}},
		},
		converge.File{
			Path:      s.RotateScript,
			Content:   rotateScript,
			Ownership: withMode(rootOwner, scriptMode),
		},
		converge.Package{PackageName: "rsync"},
		converge.User{
			Username: s.User,
			Comment:  s.UserComment,
			Home:     s.BackupRoot,
			Shell:    s.UserShell,
			System:   true,
		},
		converge.Directory{Path: s.BackupRoot, Ownership: withMode(backupOwner, backupDirMode)},
		converge.Directory{Path: sshDir, Ownership: withMode(backupOwner, sshDirMode)},
		converge.File{
			Path:      path.Join(sshDir, "id_rsa"),
			Content:   []byte(privateKey),
			Ownership: withMode(backupOwner, keyFileMode),
		},
	}

	resources = append(resources, TargetDirectories(s.BackupRoot, s.User, s.Group, targets)...)

	resources = append(resources, converge.CronFile{Template: converge.Template{
		Path:      s.CronPath,
		Source:    string(cronSource),
		Data:      s.cronData(targets),
		Funcs:     cronFuncs,
		Ownership: withMode(rootOwner, cronFileMode),
	}})

	if s.PruneOrphans {
		orphans, err := r.orphanDirectories(targets)
		if err != nil {
			return nil, err
		}
		resources = append(resources, orphans...)
	}

	return resources, nil
}

// Converge plans and applies the recipe.
func (r *Recipe) Converge(ctx context.Context) (*converge.Report, error) {
	start := time.Now()

	resources, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}

	report, err := r.applier.Apply(ctx, resources...)
	if err != nil {
		return report, err
	}

	r.log.Info("Offsite backup host converged",
		slog.Int("resources", len(report.Results)),
		slog.Int("changed", report.Changed()),
		slog.Bool("dry_run", report.DryRun),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}

// orphanDirectories returns removals for directories directly below the
// backup root that no target names. Hidden entries such as .ssh are kept.
func (r *Recipe) orphanDirectories(targets []string) ([]converge.Resource, error) {
	root := r.applier.Host().Path(r.settings.BackupRoot)

	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("could not list %s: %w", root, err)
	}

	var orphans []converge.Resource
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || slices.Contains(targets, name) {
			continue
		}
		r.log.Warn("Removing directory of undeclared backup target", slog.String("target", name))
		orphans = append(orphans, converge.DirectoryAbsent{Path: path.Join(r.settings.BackupRoot, name)})
	}
	return orphans, nil
}

func withMode(o converge.Ownership, mode os.FileMode) converge.Ownership {
	o.Mode = mode
	return o
}

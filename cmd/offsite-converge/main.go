package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/offsite-backup-provisioning/assets"
	"github.com/ruteri/offsite-backup-provisioning/cmd/flags"
	"github.com/ruteri/offsite-backup-provisioning/config"
	"github.com/ruteri/offsite-backup-provisioning/converge"
	"github.com/ruteri/offsite-backup-provisioning/offsite"
	"github.com/ruteri/offsite-backup-provisioning/registry"
	"github.com/ruteri/offsite-backup-provisioning/secrets"
	"github.com/urfave/cli/v2"
)

const usage string = `Provision an offsite backup host.

Installs rsync and the backup-rotate script, creates the rsync user and its
SSH key, and creates /backup/<target> for every target declared by nodes
tagged as backup clients.`

func main() {
	app := &cli.App{
		Name:  "offsite-converge",
		Usage: usage,
		Flags: append(flags.CommonFlags, flags.LogServiceFlagFn("offsite-converge")),
		Commands: []*cli.Command{
			{
				Name:  "converge",
				Usage: "converge this host into an offsite backup server",
				Flags: []cli.Flag{
					flags.DryRunFlag,
					flags.PruneOrphansFlag,
				},
				Action: func(cCtx *cli.Context) error {
					log := flags.SetupLogger(cCtx)
					cfg, err := flags.LoadConfig(cCtx)
					if err != nil {
						return err
					}

					recipe, err := newRecipe(cCtx.Context, cfg, log)
					if err != nil {
						return err
					}

					report, err := recipe.Converge(cCtx.Context)
					if err != nil {
						return fmt.Errorf("convergence failed: %w", err)
					}
					return json.NewEncoder(cCtx.App.Writer).Encode(report)
				},
			},
			{
				Name:  "targets",
				Usage: "print the backup targets declared by backup clients",
				Action: func(cCtx *cli.Context) error {
					log := flags.SetupLogger(cCtx)
					cfg, err := flags.LoadConfig(cCtx)
					if err != nil {
						return err
					}

					recipe, err := newRecipe(cCtx.Context, cfg, log)
					if err != nil {
						return err
					}

					targets, err := recipe.Targets(cCtx.Context)
					if err != nil {
						return err
					}
					return json.NewEncoder(cCtx.App.Writer).Encode(targets)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newRecipe(ctx context.Context, cfg *config.Config, log *slog.Logger) (*offsite.Recipe, error) {
	secretProvider, err := secrets.NewProviderFromURI(cfg.Secrets.URI, cfg.Secrets.Token, log)
	if err != nil {
		return nil, fmt.Errorf("could not create secret provider: %w", err)
	}
	if vault, ok := secretProvider.(*secrets.VaultProvider); ok && !vault.Available(ctx) {
		log.Warn("Vault health check failed", slog.String("uri", cfg.Secrets.URI))
	}

	nodes, err := registry.NewQueryFromURI(cfg.Registry.URI, cfg.Registry.Token, log)
	if err != nil {
		return nil, fmt.Errorf("could not create node registry: %w", err)
	}

	assetSource, err := assets.NewSourcesFromURIs(cfg.Assets.URIs, log)
	if err != nil {
		return nil, fmt.Errorf("could not create asset sources: %w", err)
	}

	host := converge.NewHost(cfg.Host.Root, cfg.Host.DryRun, log)
	applier := converge.NewApplier(host, log)

	log.Debug("Recipe configured",
		slog.String("environment", cfg.Node.Environment),
		slog.String("secrets", secretProvider.Name()),
		slog.String("assets", assetSource.Name()),
		slog.Bool("dry_run", cfg.Host.DryRun))

	return offsite.NewRecipe(cfg.Settings(), secretProvider, nodes, assetSource, applier, log), nil
}

package flags

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ruteri/offsite-backup-provisioning/common"
	"github.com/ruteri/offsite-backup-provisioning/config"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Output:  cCtx.App.ErrWriter,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// LoadConfig reads the configuration file and applies flag overrides.
// A missing file is only an error when --config was given explicitly.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	path := cCtx.String(ConfigFlag.Name)

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !cCtx.IsSet(ConfigFlag.Name) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if cCtx.IsSet(EnvironmentFlag.Name) {
		cfg.Node.Environment = cCtx.String(EnvironmentFlag.Name)
	}
	if cCtx.IsSet(RegistryURIFlag.Name) {
		cfg.Registry.URI = cCtx.String(RegistryURIFlag.Name)
	}
	if cCtx.IsSet(RegistryTokenFlag.Name) {
		cfg.Registry.Token = cCtx.String(RegistryTokenFlag.Name)
	}
	if cCtx.IsSet(SecretsURIFlag.Name) {
		cfg.Secrets.URI = cCtx.String(SecretsURIFlag.Name)
	}
	if cCtx.IsSet(SecretsTokenFlag.Name) {
		cfg.Secrets.Token = cCtx.String(SecretsTokenFlag.Name)
	}
	if cCtx.IsSet(AssetsURIFlag.Name) {
		cfg.Assets.URIs = cCtx.StringSlice(AssetsURIFlag.Name)
	}
	if cCtx.IsSet(HostRootFlag.Name) {
		cfg.Host.Root = cCtx.String(HostRootFlag.Name)
	}
	if cCtx.IsSet(DryRunFlag.Name) {
		cfg.Host.DryRun = cCtx.Bool(DryRunFlag.Name)
	}
	if cCtx.IsSet(PruneOrphansFlag.Name) {
		cfg.Backup.PruneOrphans = cCtx.Bool(PruneOrphansFlag.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Value:   config.DefaultPath,
	EnvVars: []string{"OFFSITE_CONFIG"},
	Usage:   "path to the TOML configuration file",
}

var EnvironmentFlag = &cli.StringFlag{
	Name:    "environment",
	EnvVars: []string{"OFFSITE_ENVIRONMENT"},
	Usage:   "node environment, selects the secrets item",
}

var RegistryURIFlag = &cli.StringFlag{
	Name:    "registry-uri",
	EnvVars: []string{"OFFSITE_REGISTRY_URI"},
	Usage:   "node registry location (file:///dir or https://host)",
}

var RegistryTokenFlag = &cli.StringFlag{
	Name:    "registry-token",
	EnvVars: []string{"OFFSITE_REGISTRY_TOKEN"},
	Usage:   "bearer token for the HTTP node registry",
}

var SecretsURIFlag = &cli.StringFlag{
	Name:    "secrets-uri",
	EnvVars: []string{"OFFSITE_SECRETS_URI"},
	Usage:   "secret store location (vault://host:port/mount or file:///dir)",
}

var SecretsTokenFlag = &cli.StringFlag{
	Name:    "secrets-token",
	EnvVars: []string{"VAULT_TOKEN"},
	Usage:   "token for the Vault secret store",
}

var AssetsURIFlag = &cli.StringSliceFlag{
	Name:    "assets-uri",
	EnvVars: []string{"OFFSITE_ASSETS_URI"},
	Usage:   "asset source location, may be repeated; embedded assets are always the last resort",
}

var HostRootFlag = &cli.StringFlag{
	Name:    "host-root",
	EnvVars: []string{"OFFSITE_HOST_ROOT"},
	Usage:   "prefix for managed filesystem paths only; packages, users and ownership lookups still act on the running system",
}

var DryRunFlag = &cli.BoolFlag{
	Name:    "dry-run",
	EnvVars: []string{"OFFSITE_DRY_RUN"},
	Usage:   "report changes without applying them",
}

var PruneOrphansFlag = &cli.BoolFlag{
	Name:  "prune-orphans",
	Usage: "remove backup directories no client declares anymore",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	ConfigFlag,
	EnvironmentFlag,
	RegistryURIFlag,
	RegistryTokenFlag,
	SecretsURIFlag,
	SecretsTokenFlag,
	AssetsURIFlag,
	HostRootFlag,
}

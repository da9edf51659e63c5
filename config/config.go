// Package config loads the offsite-converge configuration file.
package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ruteri/offsite-backup-provisioning/offsite"
)

// DefaultPath is where offsite-converge looks for its configuration.
const DefaultPath = "/etc/offsite-converge/config.toml"

type NodeConfig struct {
	Environment string `toml:"environment"`
}

type RegistryConfig struct {
	URI              string `toml:"uri"`
	Token            string `toml:"token"`
	ClientTag        string `toml:"client_tag"`
	TargetsAttribute string `toml:"targets_attribute"`
}

type SecretsConfig struct {
	URI   string `toml:"uri"`
	Token string `toml:"token"`
	Bag   string `toml:"bag"`
	Key   string `toml:"key"`
}

type AssetsConfig struct {
	URIs []string `toml:"uris"`
}

type HostConfig struct {
	Root   string `toml:"root"`
	DryRun bool   `toml:"dry_run"`
}

type BackupConfig struct {
	Root         string `toml:"root"`
	User         string `toml:"user"`
	Group        string `toml:"group"`
	RotateScript string `toml:"rotate_script"`
	CronPath     string `toml:"cron_path"`
	CronHour     int    `toml:"cron_hour"`
	PruneOrphans bool   `toml:"prune_orphans"`
}

// Config is the complete configuration of a convergence run.
type Config struct {
	Node     NodeConfig     `toml:"node"`
	Registry RegistryConfig `toml:"registry"`
	Secrets  SecretsConfig  `toml:"secrets"`
	Assets   AssetsConfig   `toml:"assets"`
	Host     HostConfig     `toml:"host"`
	Backup   BackupConfig   `toml:"backup"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	s := offsite.DefaultSettings()
	return &Config{
		Node: NodeConfig{Environment: s.Environment},
		Registry: RegistryConfig{
			URI:              "file:///etc/offsite-converge/nodes",
			ClientTag:        s.ClientTag,
			TargetsAttribute: s.TargetsAttribute,
		},
		Secrets: SecretsConfig{
			URI: "file:///etc/offsite-converge/data_bags",
			Bag: s.SecretsBag,
			Key: s.SecretsKey,
		},
		Assets: AssetsConfig{URIs: []string{"embedded://"}},
		Backup: BackupConfig{
			Root:         s.BackupRoot,
			User:         s.User,
			Group:        s.Group,
			RotateScript: s.RotateScript,
			CronPath:     s.CronPath,
			CronHour:     s.CronHour,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value; unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every missing or out of range setting.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"node.environment":           c.Node.Environment,
		"registry.uri":               c.Registry.URI,
		"registry.client_tag":        c.Registry.ClientTag,
		"registry.targets_attribute": c.Registry.TargetsAttribute,
		"secrets.uri":                c.Secrets.URI,
		"secrets.bag":                c.Secrets.Bag,
		"secrets.key":                c.Secrets.Key,
		"backup.root":                c.Backup.Root,
		"backup.user":                c.Backup.User,
		"backup.group":               c.Backup.Group,
		"backup.rotate_script":       c.Backup.RotateScript,
		"backup.cron_path":           c.Backup.CronPath,
	}
	for _, key := range sortedKeys(required) {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s must be set", key))
		}
	}

	if c.Backup.CronHour < 0 || c.Backup.CronHour > 23 {
		errs = append(errs, fmt.Errorf("backup.cron_hour must be between 0 and 23, got %d", c.Backup.CronHour))
	}
	paths := map[string]string{
		"backup.root":          c.Backup.Root,
		"backup.rotate_script": c.Backup.RotateScript,
		"backup.cron_path":     c.Backup.CronPath,
	}
	for _, key := range sortedKeys(paths) {
		if p := paths[key]; p != "" && !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("%s must be an absolute path, got %q", key, p))
		}
	}
	return errors.Join(errs...)
}

// Settings returns the recipe settings described by the configuration.
func (c *Config) Settings() offsite.Settings {
	s := offsite.DefaultSettings()
	s.Environment = c.Node.Environment
	s.SecretsBag = c.Secrets.Bag
	s.SecretsKey = c.Secrets.Key
	s.ClientTag = c.Registry.ClientTag
	s.TargetsAttribute = c.Registry.TargetsAttribute
	s.BackupRoot = c.Backup.Root
	s.User = c.Backup.User
	s.Group = c.Backup.Group
	s.RotateScript = c.Backup.RotateScript
	s.CronPath = c.Backup.CronPath
	s.CronHour = c.Backup.CronHour
	s.PruneOrphans = c.Backup.PruneOrphans
	return s
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

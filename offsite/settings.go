package offsite

import (
	"os"

	"github.com/ruteri/offsite-backup-provisioning/resolver"
)

// Settings holds the tunables of a recipe run. DefaultSettings matches the
// layout expected by backup clients.
type Settings struct {
	// Environment selects the secrets item, usually the node's chef environment.
	Environment string

	SecretsBag string
	SecretsKey string

	// ClientTag and TargetsAttribute locate backup clients and their targets.
	ClientTag        string
	TargetsAttribute string

	BackupRoot string
	User       string
	Group      string

	// UserComment and UserShell describe the rsync account.
	UserComment string
	UserShell   string

	RotateScript string
	CronPath     string
	CronHour     int

	// PruneOrphans removes target directories no client declares anymore.
	PruneOrphans bool
}

// DefaultSettings returns the settings of a standard offsite host.
func DefaultSettings() Settings {
	return Settings{
		Environment:      "_default",
		SecretsBag:       "secrets",
		SecretsKey:       "rsync-backups-user.priv",
		ClientTag:        resolver.DefaultClientTag,
		TargetsAttribute: resolver.DefaultTargetsAttribute,
		BackupRoot:       "/backup",
		User:             "rsync",
		Group:            "rsync",
		UserComment:      "Rsync User",
		UserShell:        "/bin/bash",
		RotateScript:     "/usr/local/bin/backup-rotate",
		CronPath:         "/etc/cron.d/backup-rotate-cron",
		CronHour:         3,
	}
}

const (
	backupDirMode os.FileMode = 0o755
	sshDirMode    os.FileMode = 0o700
	keyFileMode   os.FileMode = 0o600
	scriptMode    os.FileMode = 0o755
	cronFileMode  os.FileMode = 0o600
)

// Package offsite provisions an offsite backup host.
//
// A Recipe gathers its inputs first: the rsync private key from the secret
// provider, and the backup targets declared by every node tagged as a backup
// client. Targets are validated as single path components. Only then is the
// ordered resource list built and handed to a converge.Applier:
//
//  1. package ruby, unless a ruby is already on PATH
//  2. /usr/local/bin/backup-rotate
//  3. package rsync
//  4. the rsync system user, home /backup
//  5. /backup and /backup/.ssh
//  6. /backup/.ssh/id_rsa holding the private key
//  7. one /backup/<target> directory per declared target
//  8. /etc/cron.d/backup-rotate-cron rotating each target nightly
//
// Directories for targets that are no longer declared are left in place
// unless PruneOrphans is set.
package offsite

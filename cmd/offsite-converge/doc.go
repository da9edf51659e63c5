// Command offsite-converge provisions an offsite backup host.
//
// Usage:
//
//	offsite-converge [global options] converge [--dry-run] [--prune-orphans]
//	offsite-converge [global options] targets
//
// Configuration is read from /etc/offsite-converge/config.toml (see --config)
// and may be overridden with flags or OFFSITE_* environment variables.
// converge prints the JSON report of applied resources; targets prints the
// resolved target list.
package main

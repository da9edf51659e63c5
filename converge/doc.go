// Package converge applies desired-state resources to a host.
//
// Each resource describes what should be true (a package is installed, a
// directory exists with a given owner and mode, a file has given content)
// and its Apply method makes the host match, changing only what differs.
// Applying the same resource twice is a no-op the second time.
//
// Supported resources:
//
//   - Package: installed through apt, optionally guarded by a not_if command
//   - User: a local account with home, shell and comment
//   - Directory: a directory with owner, group and mode
//   - DirectoryAbsent: a directory that must not exist
//   - File: a file with exact content, owner, group and mode
//   - Template: a File rendered from a text/template
//   - CronFile: a Template whose output is validated as a cron.d file
//
// The Applier runs resources in order and stops at the first failure,
// returning a *ResourceError naming the resource. Already applied resources
// are not rolled back; a failed run is fixed by running it again.
//
// A Host carries everything resources touch: a filesystem root, a command
// runner and an account database. In dry-run mode resources compute and log
// the actions they would take without mutating anything.
package converge

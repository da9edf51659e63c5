// Package assets provides the named files the offsite recipe installs, such
// as the backup-rotate script and the rotation cron template.
//
// Assets are looked up by name across pluggable sources:
//
//   - embedded:// - the defaults compiled into the binary
//   - file:///srv/offsite/files - a cookbook-style files directory
//   - s3://bucket-name/prefix/?region=us-west-2&endpoint=minio.local:9000
//
// Sources are combined with ChainSource, which returns the first hit.
// Operators override a default by placing a file of the same name in an
// earlier source.
package assets

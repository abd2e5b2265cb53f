// Package sources acquires CSV files which builder consumes.
//
// A source either points to a directory with already extracted files
// or downloads an archive from MaxMind. Downloads are skipped if the
// upstream checksum has not changed since the last successful fetch.
package sources

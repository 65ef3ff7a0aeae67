package library

import "path/filepath"

// VersionFile is the library root's marker file, containing a single
// line with the decimal schema version.
const VersionFile = ".codplayerdb"

// CurrentVersion is the schema version this package reads and writes.
const CurrentVersion = 1

// DiscDir returns the directory holding a disc's files, bucketed by
// the first hex character of its internal id: DB_ROOT/discs/<h>/<id40>/.
func DiscDir(root, internalID string) string {
	bucket := string(internalID[0])
	return filepath.Join(root, "discs", bucket, internalID)
}

// id8 is the first 8 hex characters of the 40-char internal id, used
// as the filename stem within a disc's directory.
func id8(internalID string) string {
	return internalID[:8]
}

func IDFile(root, internalID string) string     { return filepath.Join(DiscDir(root, internalID), id8(internalID)+".id") }
func DataFile(root, internalID string) string   { return filepath.Join(DiscDir(root, internalID), id8(internalID)+".cdr") }
func TOCFile(root, internalID string) string    { return filepath.Join(DiscDir(root, internalID), id8(internalID)+".toc") }
func RecordFile(root, internalID string) string { return filepath.Join(DiscDir(root, internalID), id8(internalID)+".cod") }

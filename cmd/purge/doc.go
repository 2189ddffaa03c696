// Command purge removes expired files from the video captioner's storage
// directory without running the server.
//
// Usage:
//
//	purge -older-than <duration> [-dir <path>] [-dry-run] [-yes]
//
// Flags:
//
//	-dir         Storage directory (default: $STORAGE_DIR or ./uploads)
//	-older-than  Remove files last modified before now minus this duration
//	-dry-run     List what would be removed and exit
//	-yes         Skip the confirmation prompt
//
// When stdin is a terminal and -yes is not given, purge shows how many files
// match and asks for confirmation before deleting. Non-interactive runs
// without -yes refuse to delete.
package main

// Command hashscan digests files and directories and reports duplicates.
//
// Usage:
//
//	hashscan [flags] <file|dir>...
//
// Without an algorithm flag, DEFAULT_ALGORITHMS (or SHA-256) is used.
// Files larger than SNIFF_LARGE_FILE_LIMIT have only their first 64 KiB
// sniffed for type detection, as on the server.
// Duplicate groups are printed to stdout; -tsv writes the visible rows as
// tab separated values instead and -zip archives the visible files. The
// summary line ("N files hashed in S seconds") goes to stderr, preceded
// by a progress line when stderr is a terminal.
//
// Exit status is 0 on success, 1 on errors, 2 on bad usage and 130 when
// interrupted. An interrupt stops scheduling digests; the results
// gathered so far are still written.
package main

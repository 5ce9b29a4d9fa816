// Package archive packs a list of files into a zip archive, reporting
// progress per file. Any file that cannot be added aborts the archive.
package archive

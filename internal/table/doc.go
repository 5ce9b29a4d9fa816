// Package table holds the records of the current batch and everything a
// viewer derives from them: duplicate highlighting, duplicate filtering,
// text search, statistics and TSV export.
//
// A Table has a single owner. The pipeline coordinator's goroutine is the
// only one that inserts records, merges digest results and removes rows;
// other goroutines get copies through the coordinator. Nothing in this
// package locks.
package table

// Package database keeps the history of finished batches in SQLite.
//
// Each batch is stored with its inputs, counters and every record in
// discovery order, together with the record's digests. Stored digests can
// be looked up across batches, which finds files seen before.
//
// The database uses WAL mode for concurrent reads and creates its schema
// on open.
package database

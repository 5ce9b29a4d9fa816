// Package pipeline runs batches through expansion, metadata extraction and
// digesting, and keeps the resulting record table.
//
// A [Coordinator] owns the table on a single goroutine. Each batch runs on
// its own goroutine: it counts the inputs, streams and extracts them in
// discovery order, then hands every (path, algorithm) pair to the digest
// worker pool. Every stage talks to the coordinator through one bounded
// channel of immutable messages, and the coordinator turns them into
// [Event] values for subscribed observers.
//
// Events for one batch arrive in this order:
//
//	batch_started, batch_size,
//	record_ready and progress for each file, in discovery order,
//	digest_result and progress for each digest, in completion order,
//	batch_digest_complete, batch_finished
//
// scan_diagnostic may appear at any point. Cancelling a batch stops the
// dispatch of digest jobs that have not started; the ones already running
// are still reported, and batch_digest_complete and batch_finished are
// always sent.
package pipeline

// Package digest computes MD5, SHA-1 and SHA-256 file digests on a bounded
// worker pool.
//
// A batch is expanded into one [Job] per (path, algorithm) pair with [Jobs]
// and handed to [Engine.Start]. Results stream back over a bounded channel
// as each job completes, in no particular order, so consumers key them on
// path and algorithm. A read failure never stops the run: the result
// carries an error-tagged value ("error: ...") and the remaining jobs
// continue. An unrecognised algorithm produces an empty value.
//
// Files are read in fixed [ChunkSize] pieces, so memory use is independent
// of file size. The pool is sized by [workers.ForCPU] and can be pinned with
// the HASH_WORKERS environment variable.
//
// Cancellation stops dispatch only:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	run := engine.Start(ctx, digest.Jobs(paths, algs))
//	go func() { <-stop; cancel() }()
//	for res := range run.Results() {
//		// merge res into the record keyed by res.Path
//	}
//	summary := run.Summary() // Skipped counts jobs that never started
package digest

// Package metrics provides Prometheus instrumentation for hashdrop.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "hashdrop_". They are grouped as:
//
//   - HTTP: request counts, durations, in-flight requests and token checks
//   - Database: batch history query counts, durations and file sizes
//   - Pipeline: batches, expanded files, extracted records
//   - Digest: jobs by algorithm and status, per-digest duration, bytes read,
//     pool size and busy workers
//   - Content scanning: rule matches, scan errors, compile diagnostics
//   - Archive: files written and runs by status
//   - Table: record and duplicate counts refreshed by [Collector]
//   - Filesystem: ESTALE retry attempts, outcomes and durations
//
// Mount promhttp.Handler() to expose them:
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// Useful queries:
//
// Digest throughput by algorithm:
//
//	sum(rate(hashdrop_digest_bytes_total[5m])) by (algorithm)
//
// Digest error ratio:
//
//	sum(rate(hashdrop_digests_total{status="error"}[5m])) / sum(rate(hashdrop_digests_total[5m]))
//
// Worker saturation:
//
//	hashdrop_digest_workers_busy / hashdrop_digest_workers
package metrics

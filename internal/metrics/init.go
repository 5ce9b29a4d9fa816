package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Filesystem retry metrics ---
	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetryDuration.WithLabelValues(op)
	}

	// --- Digests per algorithm × status ---
	for _, alg := range []string{"md5", "sha1", "sha256"} {
		for _, status := range []string{"success", "error", "unknown", "skipped"} {
			DigestsTotal.WithLabelValues(alg, status)
		}
		DigestDuration.WithLabelValues(alg)
		DigestBytesTotal.WithLabelValues(alg)
	}

	for _, status := range []string{"completed", "cancelled"} {
		BatchesTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "degraded"} {
		RecordsExtractedTotal.WithLabelValues(status)
	}

	for _, level := range []string{"error", "warning", "success"} {
		RuleDiagnosticsTotal.WithLabelValues(level)
	}

	for _, status := range []string{"success", "error"} {
		ArchiveRunsTotal.WithLabelValues(status)
	}
	for _, status := range []string{"success", "failure", "missing"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "save_batch", "list_batches", "get_batch",
		"delete_batch", "find_digest", "get_metadata", "set_metadata", "vacuum"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}
}

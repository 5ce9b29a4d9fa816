package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hashdrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_auth_attempts_total",
			Help: "Total number of API token checks",
		},
		[]string{"status"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hashdrop_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hashdrop_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Pipeline metrics
var (
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_batches_total",
			Help: "Total number of ingestion batches by outcome",
		},
		[]string{"status"}, // "completed", "cancelled"
	)

	BatchRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_batch_running",
			Help: "Whether a batch is currently running (1 = running, 0 = idle)",
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hashdrop_batch_duration_seconds",
			Help:    "Wall-clock duration of a whole batch",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800, 3600},
		},
	)

	FilesExpandedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hashdrop_files_expanded_total",
			Help: "Total number of file paths produced by directory expansion",
		},
	)

	RecordsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_records_extracted_total",
			Help: "Total number of file records extracted",
		},
		[]string{"status"}, // "success", "degraded"
	)
)

// Digest metrics
var (
	DigestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_digests_total",
			Help: "Total number of digest jobs by algorithm and status",
		},
		[]string{"algorithm", "status"}, // status: "success", "error", "unknown", "skipped"
	)

	DigestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hashdrop_digest_duration_seconds",
			Help:    "Time spent computing one digest",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"algorithm"},
	)

	DigestBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_digest_bytes_total",
			Help: "Total number of bytes read while computing digests",
		},
		[]string{"algorithm"},
	)

	DigestWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_digest_workers",
			Help: "Number of digest workers in the current pool",
		},
	)

	DigestWorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_digest_workers_busy",
			Help: "Number of digest workers currently hashing a file",
		},
	)
)

// Content scanning metrics
var (
	ScanMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_scan_matches_total",
			Help: "Total number of rule matches by rule identifier",
		},
		[]string{"rule"},
	)

	ScanErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hashdrop_scan_errors_total",
			Help: "Total number of files that could not be scanned",
		},
	)

	RuleDiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_rule_diagnostics_total",
			Help: "Total number of rule compilation diagnostics by level",
		},
		[]string{"level"}, // "error", "warning", "success"
	)

	RulesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_rules_loaded",
			Help: "Number of rules in the active compiled set",
		},
	)
)

// Archive metrics
var (
	ArchiveFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hashdrop_archive_files_total",
			Help: "Total number of files written into archives",
		},
	)

	ArchiveRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_archive_runs_total",
			Help: "Total number of archive exports by status",
		},
		[]string{"status"},
	)
)

// Table metrics, refreshed by the Collector
var (
	TableRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_table_records",
			Help: "Number of records in the current table",
		},
	)

	TableDuplicateGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_table_duplicate_groups",
			Help: "Number of duplicate groups in the current table",
		},
	)

	TableDuplicateRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_table_duplicate_records",
			Help: "Number of records that belong to a duplicate group",
		},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashdrop_event_subscribers",
			Help: "Number of connected event stream clients",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after a stale handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hashdrop_filesystem_retry_duration_seconds",
			Help:    "Total time spent on a retried filesystem operation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashdrop_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen",
		},
		[]string{"operation"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hashdrop_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - HASHDROP_PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - DATABASE_DIR: Directory holding the batch history database (default: ./data)
//   - RULES_DIR: Directory of content rule sources (default: ./rules)
//   - HASH_WORKERS: Digest pool size (default: one per available CPU)
//   - DEFAULT_ALGORITHMS: Comma-separated digests used when a request names none (default: sha256)
//   - SKIP_HIDDEN: Skip dot-files while expanding directories (default: true)
//   - FOLLOW_SYMLINKS: Descend into symlinked directories (default: true)
//   - MAX_DEPTH: Maximum directory nesting (default: 64)
//   - CHANNEL_BUFFER: Capacity of the pipeline channels (default: 256)
//   - SNIFF_LARGE_FILE_LIMIT: Size above which only the head of a file is typed (default: platform limit)
//   - MAX_SCAN_SIZE: Largest file the content scanner reads (default: 64 MiB)
//   - API_TOKEN_HASH: bcrypt hash of the API token; unset leaves /api open
//
// # Directory Setup
//
// The database directory is required and must be writable. The rules
// directory is optional; when it cannot be created content scanning is
// disabled.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
package startup

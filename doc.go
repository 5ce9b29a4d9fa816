// Package main provides the entry point for the hashdrop server.
//
// hashdrop ingests files and directories, extracts per-file metadata,
// computes MD5, SHA-1 and SHA-256 digests on a worker pool and groups
// files with equal digests. Progress is streamed to clients as
// server-sent events while the batch runs.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Metrics: Registers Prometheus collectors and the filesystem retry observer
//  3. Database Initialization: Opens the SQLite batch history
//  4. Content Rules: Compiles the rule directory, if it exists
//  5. Pipeline: Starts the coordinator and subscribes the history recorder
//  6. HTTP Server Setup: Configures routes and middleware and starts serving
//  7. Graceful Shutdown: Handles SIGINT/SIGTERM and stops every component
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - Batch submission, status and cancellation
//     - Records, duplicate groups, search and duplicate filtering
//     - TSV and zip export
//     - Event stream (/api/events)
//     - Batch history and digest lookup
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
//   - HASHDROP_PORT: Main HTTP server port (default: 8080)
//   - METRICS_PORT: Metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable metrics server (default: true)
//   - DATABASE_DIR: Directory for the SQLite history (default: ./data)
//   - RULES_DIR: Directory of *.rules files (default: ./rules)
//   - HASH_WORKERS: Digest worker count (default: one per CPU)
//   - DEFAULT_ALGORITHMS: Comma separated algorithms (default: sha256)
//   - SKIP_HIDDEN, FOLLOW_SYMLINKS, MAX_DEPTH: Directory expansion
//   - CHANNEL_BUFFER: Pipeline buffer sizes (default: 256)
//   - SNIFF_LARGE_FILE_LIMIT, MAX_SCAN_SIZE: Read limits for detection and scanning
//   - API_TOKEN_HASH: bcrypt hash of the API token (see cmd/apitoken)
//   - MEMORY_LIMIT, MEMORY_RATIO: Derive GOMEMLIMIT from the container limit
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//   - LOG_HEALTH_CHECKS: Log probe requests (default: true)
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests and end event streams
//  2. Shutdown metrics server (if running)
//  3. Stop the pipeline (a running batch finishes as cancelled)
//  4. Flush the history recorder
//  5. Stop metrics collector
//  6. Close database connections
//
// # Build Requirements
//
// CGO is required for SQLite:
//
//	CGO_ENABLED=1 go build -o hashdrop .
package main

// Package logging provides a simple leveled logging interface for hashdrop.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (per-file and per-job detail)
//   - INFO: General operational messages (batch start/finish, configuration)
//   - WARN: Soft per-item failures (unreadable files, rule warnings)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true. Command line tools may override it with
// SetLevel.
package logging

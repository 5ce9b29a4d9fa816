// Package handlers provides the HTTP handlers of the hashdrop API.
//
// It includes handlers for:
//   - Starting, inspecting and cancelling batches
//   - Reading, filtering and removing records and duplicate groups
//   - TSV and zip export
//   - Rule reload and the server-sent event stream
//   - Stored batch history and digest lookup
//   - Health checks and version information
package handlers

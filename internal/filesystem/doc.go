/*
Package filesystem provides the file open/stat calls used by the metadata and
digest stages, with automatic retry for NFS stale file handle errors.

Users frequently drop files that live on network shares. A transient ESTALE
(errno 116) would otherwise turn into an "error" placeholder for a file that
is perfectly readable a few milliseconds later, so only ESTALE is retried,
with exponential backoff capped at MaxBackoff. Every other error, including
permission denied and not-exist, is returned on the first attempt.

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())

Retry metrics are reported through an Observer registered with SetObserver;
the metrics package provides the Prometheus implementation.
*/
package filesystem

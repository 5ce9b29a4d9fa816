// Package metadata turns a file path into a [Record]: name, size,
// extension, directory label, MIME type, type description and, when asked
// for, the rules it matched.
//
// Extraction never fails as a whole. A file that cannot be opened or typed
// still produces a record, with "error" in the fields that could not be
// filled, so one unreadable file does not stop a batch.
//
// Files larger than the detector can address are typed from a temporary
// copy of their first 64 KiB.
package metadata

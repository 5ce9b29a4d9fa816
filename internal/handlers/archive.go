package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"hashdrop/internal/archive"
	"hashdrop/internal/logging"
)

// ArchiveRequest writes records into a zip on the server. Paths must be
// records of the current table; without paths, the visible rows are archived.
type ArchiveRequest struct {
	Dest  string   `json:"dest"`
	Paths []string `json:"paths,omitempty"`
}

// ArchiveResponse reports a written archive.
type ArchiveResponse struct {
	Dest  string `json:"dest"`
	Files int    `json:"files"`
}

// CreateArchive zips the selected or visible records. A failure on any
// file aborts the archive and leaves nothing at dest.
func (h *Handlers) CreateArchive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Dest == "" || !filepath.IsAbs(req.Dest) {
		writeJSONError(w, "An absolute destination path is required", http.StatusBadRequest)
		return
	}

	files := req.Paths
	if len(files) > 0 {
		unknown, err := h.coord.UnknownPaths(r.Context(), files)
		if err != nil {
			writeJSONError(w, "Failed to read records", http.StatusServiceUnavailable)
			return
		}
		if len(unknown) > 0 {
			logging.Warn("Archive request names %d paths outside the record table, first %s", len(unknown), unknown[0])
			writeJSONError(w, "Only records in the table can be archived", http.StatusBadRequest)
			return
		}
	} else {
		visible, err := h.coord.VisiblePaths(r.Context())
		if err != nil {
			writeJSONError(w, "Failed to read records", http.StatusServiceUnavailable)
			return
		}
		files = visible
	}

	var count int
	progress := archive.ProgressFunc(func(path string, n, total int) {
		count = n
		logging.Debug("Archived %s (%d/%d)", path, n, total)
	})

	err := h.archiver.Archive(r.Context(), files, req.Dest, progress)
	if errors.Is(err, archive.ErrNoFiles) {
		writeJSONError(w, "No files to archive", http.StatusBadRequest)
		return
	}
	if err != nil {
		logging.Error("Archive to %s failed: %v", req.Dest, err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ArchiveResponse{Dest: req.Dest, Files: count})
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"hashdrop/internal/database"
	"hashdrop/internal/digest"
	"hashdrop/internal/expand"
	"hashdrop/internal/logging"
	"hashdrop/internal/middleware"
	"hashdrop/internal/pipeline"
)

// StartBatchRequest submits a batch. A missing algorithms list selects
// the configured defaults; an empty list extracts metadata only.
type StartBatchRequest struct {
	Paths      []string `json:"paths"`
	Algorithms []string `json:"algorithms"`
	Scan       bool     `json:"scan"`
}

// StartBatch begins a batch and answers 202 with its ID.
func (h *Handlers) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req StartBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	algs := h.algorithms
	if req.Algorithms != nil {
		parsed, err := digest.ParseList(strings.Join(req.Algorithms, ","))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		algs = parsed
	}

	handle, err := h.coord.Start(r.Context(), pipeline.Request{
		Paths:      req.Paths,
		Algorithms: algs,
		Scan:       req.Scan,
	})
	switch {
	case errors.Is(err, expand.ErrNoInputs):
		writeJSONError(w, "Paths are required", http.StatusBadRequest)
		return
	case errors.Is(err, pipeline.ErrBatchRunning):
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		logging.Error("Failed to start batch: %v", err)
		writeJSONError(w, "Failed to start batch", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(middleware.BatchIDHeader, handle.ID)
	writeJSONCode(w, map[string]string{"id": handle.ID}, http.StatusAccepted)
}

// GetCurrentBatch returns the running or most recent batch status.
func (h *Handlers) GetCurrentBatch(w http.ResponseWriter, r *http.Request) {
	status, err := h.coord.Status(r.Context())
	if err != nil {
		writeJSONError(w, "Failed to get status", http.StatusServiceUnavailable)
		return
	}
	if status.ID != "" {
		w.Header().Set(middleware.BatchIDHeader, status.ID)
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, status)
}

// CancelBatch stops scheduling digest work for the running batch.
func (h *Handlers) CancelBatch(w http.ResponseWriter, r *http.Request) {
	err := h.coord.Cancel(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrNoBatch):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case err != nil:
		writeJSONError(w, "Failed to cancel batch", http.StatusServiceUnavailable)
	default:
		writeJSONStatus(w, "cancelling")
	}
}

// ListBatches returns stored batch summaries, newest first.
func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	batches, err := h.db.ListBatches(r.Context(), queryInt(r, "limit", database.DefaultListLimit))
	if err != nil {
		logging.Error("Failed to list batches: %v", err)
		writeJSONError(w, "Failed to list batches", http.StatusInternalServerError)
		return
	}
	if batches == nil {
		batches = []database.BatchInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, batches)
}

// GetBatch returns one stored batch with its records.
func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	id := mux.Vars(r)["id"]
	w.Header().Set(middleware.BatchIDHeader, id)
	batch, err := h.db.GetBatch(r.Context(), id)
	if errors.Is(err, database.ErrBatchNotFound) {
		writeJSONError(w, "Batch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to get batch: %v", err)
		writeJSONError(w, "Failed to get batch", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, batch)
}

// DeleteBatch removes one stored batch.
func (h *Handlers) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	id := mux.Vars(r)["id"]
	w.Header().Set(middleware.BatchIDHeader, id)
	err := h.db.DeleteBatch(r.Context(), id)
	if errors.Is(err, database.ErrBatchNotFound) {
		writeJSONError(w, "Batch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to delete batch: %v", err)
		writeJSONError(w, "Failed to delete batch", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "deleted")
}

// FindDigest looks a digest value up across stored batches.
func (h *Handlers) FindDigest(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	value := strings.ToLower(mux.Vars(r)["value"])
	matches, err := h.db.FindDigest(r.Context(), value, queryInt(r, "limit", database.DefaultListLimit))
	if err != nil {
		logging.Error("Failed to look up digest: %v", err)
		writeJSONError(w, "Failed to look up digest", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []database.DigestMatch{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, matches)
}

func (h *Handlers) requireHistory(w http.ResponseWriter) bool {
	if h.db == nil {
		writeJSONError(w, "Batch history is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

package handlers

import (
	"errors"
	"net/http"

	"hashdrop/internal/logging"
	"hashdrop/internal/pipeline"
	"hashdrop/internal/table"
)

// RecordsRequest names records by path.
type RecordsRequest struct {
	Paths []string `json:"paths"`
}

// ViewRequest changes how the table is filtered. Nil fields are left as
// they are.
type ViewRequest struct {
	HideDuplicates *bool   `json:"hideDuplicates,omitempty"`
	Pattern        *string `json:"pattern,omitempty"`
	Mode           string  `json:"mode,omitempty"`
	CaseSensitive  bool    `json:"caseSensitive,omitempty"`
}

// GetRecords returns the visible rows with statistics and groups.
func (h *Handlers) GetRecords(w http.ResponseWriter, r *http.Request) {
	snap, err := h.coord.Snapshot(r.Context())
	if err != nil {
		writeJSONError(w, "Failed to read records", http.StatusServiceUnavailable)
		return
	}
	if snap.Rows == nil {
		snap.Rows = []table.View{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, snap)
}

// GetDuplicates returns the duplicate groups in ordinal order.
func (h *Handlers) GetDuplicates(w http.ResponseWriter, r *http.Request) {
	snap, err := h.coord.Snapshot(r.Context())
	if err != nil {
		writeJSONError(w, "Failed to read records", http.StatusServiceUnavailable)
		return
	}
	groups := snap.Groups
	if groups == nil {
		groups = []table.Group{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, groups)
}

// DeleteRecords removes rows by path.
func (h *Handlers) DeleteRecords(w http.ResponseWriter, r *http.Request) {
	var req RecordsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		writeJSONError(w, "Paths array is required", http.StatusBadRequest)
		return
	}

	n, err := h.coord.Remove(r.Context(), req.Paths)
	if err != nil {
		writeJSONError(w, "Failed to remove records", http.StatusServiceUnavailable)
		return
	}
	logging.Debug("Removed %d of %d requested records", n, len(req.Paths))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]int{"removed": n})
}

// UpdateView sets duplicate hiding and the search filter. An invalid
// regex is rejected and the previous filter stays in place.
func (h *Handlers) UpdateView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Pattern != nil {
		mode, err := table.ParseSearchMode(req.Mode)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		search := table.Search{Pattern: *req.Pattern, Mode: mode, CaseSensitive: req.CaseSensitive}
		err = h.coord.SetSearch(r.Context(), search)
		if errors.Is(err, pipeline.ErrClosed) {
			writeJSONError(w, "Failed to update view", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if req.HideDuplicates != nil {
		if err := h.coord.SetHideDuplicates(r.Context(), *req.HideDuplicates); err != nil {
			writeJSONError(w, "Failed to update view", http.StatusServiceUnavailable)
			return
		}
	}

	h.GetRecords(w, r)
}

// ExportTSV downloads the visible rows as tab separated values.
func (h *Handlers) ExportTSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.coord.ExportTSV(r.Context())
	if err != nil {
		logging.Error("Export failed: %v", err)
		writeJSONError(w, "Failed to export", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="hashdrop.tsv"`)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Export write failed: %v", err)
	}
}

package handlers

import (
	"errors"
	"net/http"

	"hashdrop/internal/pipeline"
	"hashdrop/internal/rules"
)

// RulesResponse reports a rule reload.
type RulesResponse struct {
	// Loaded is true when at least one source compiled
	Loaded      bool              `json:"loaded"`
	Errors      int               `json:"errors"`
	Warnings    int               `json:"warnings"`
	Diagnostics rules.Diagnostics `json:"diagnostics"`
}

// ReloadRules recompiles the rule directory. Diagnostics are returned and
// also streamed as scan_diagnostic events.
func (h *Handlers) ReloadRules(w http.ResponseWriter, r *http.Request) {
	diags, err := h.coord.ReloadRules(r.Context())
	if errors.Is(err, pipeline.ErrNoScanner) {
		writeJSONError(w, err.Error(), http.StatusNotImplemented)
		return
	}
	if err != nil {
		writeJSONError(w, "Failed to reload rules", http.StatusServiceUnavailable)
		return
	}
	if diags == nil {
		diags = rules.Diagnostics{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RulesResponse{
		Loaded:      diags.Count(rules.LevelSuccess) > 0,
		Errors:      diags.Count(rules.LevelError),
		Warnings:    diags.Count(rules.LevelWarning),
		Diagnostics: diags,
	})
}

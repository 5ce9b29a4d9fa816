package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the health probes and the JSON API on r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Health check endpoints
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Batches
	api.HandleFunc("/batches", h.StartBatch).Methods(http.MethodPost)
	api.HandleFunc("/batches", h.ListBatches).Methods(http.MethodGet)
	api.HandleFunc("/batches/current", h.GetCurrentBatch).Methods(http.MethodGet)
	api.HandleFunc("/batches/current/cancel", h.CancelBatch).Methods(http.MethodPost)
	api.HandleFunc("/batches/{id}", h.GetBatch).Methods(http.MethodGet)
	api.HandleFunc("/batches/{id}", h.DeleteBatch).Methods(http.MethodDelete)
	api.HandleFunc("/digests/{value}", h.FindDigest).Methods(http.MethodGet)

	// Records
	api.HandleFunc("/records", h.GetRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", h.DeleteRecords).Methods(http.MethodDelete)
	api.HandleFunc("/duplicates", h.GetDuplicates).Methods(http.MethodGet)
	api.HandleFunc("/view", h.UpdateView).Methods(http.MethodPut)
	api.HandleFunc("/export.tsv", h.ExportTSV).Methods(http.MethodGet)
	api.HandleFunc("/archive", h.CreateArchive).Methods(http.MethodPost)

	// Rules and events
	api.HandleFunc("/rules/reload", h.ReloadRules).Methods(http.MethodPost)
	api.HandleFunc("/events", h.StreamEvents).Methods(http.MethodGet)
}

package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"hashdrop/internal/startup"
)

const (
	statusHealthy     = "healthy"
	statusUnavailable = "unavailable"
)

// probeTimeout bounds how long a health probe waits on the coordinator.
const probeTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Batch info
	BatchRunning bool   `json:"batchRunning"`
	BatchID      string `json:"batchId,omitempty"`
	Records      int    `json:"records"`
	Subscribers  int    `json:"subscribers"`
	History      bool   `json:"history"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	response := HealthResponse{
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Subscribers:  h.coord.Subscribers(),
		History:      h.db != nil,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	status, err := h.coord.Status(ctx)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		response.Status = statusUnavailable
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, response)
		return
	}

	response.Status = statusHealthy
	response.Ready = true
	response.BatchRunning = status.Running
	response.BatchID = status.ID
	response.Records = status.Records
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the coordinator answers
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if _, err := h.coord.Status(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}

package database

import (
	"time"

	"hashdrop/internal/metadata"
)

// BatchInfo is the stored summary of one finished batch.
type BatchInfo struct {
	ID            string    `json:"id"`
	Inputs        []string  `json:"inputs"`
	Algorithms    []string  `json:"algorithms"`
	Scan          bool      `json:"scan"`
	Files         int       `json:"files"`
	Digests       int       `json:"digests"`
	Errors        int       `json:"errors"`
	Skipped       int       `json:"skipped"`
	Groups        int       `json:"groups"`
	Cancelled     bool      `json:"cancelled"`
	DigestSeconds float64   `json:"digestSeconds"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// Batch is a stored batch with its records in discovery order.
type Batch struct {
	BatchInfo
	Records []metadata.Record `json:"records"`
}

// DigestMatch is a stored record whose digest equals a looked-up value.
type DigestMatch struct {
	BatchID    string    `json:"batchId"`
	Path       string    `json:"path"`
	Algorithm  string    `json:"algorithm"`
	Size       uint64    `json:"size"`
	FinishedAt time.Time `json:"finishedAt"`
}

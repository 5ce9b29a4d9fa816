package handlers

import (
	"time"

	"hashdrop/internal/archive"
	"hashdrop/internal/database"
	"hashdrop/internal/digest"
	"hashdrop/internal/pipeline"
	"hashdrop/internal/startup"
)

// eventBuffer is the per-client queue of the event stream. A client that
// falls this far behind loses events rather than stalling the pipeline.
const eventBuffer = 256

type Handlers struct {
	coord      *pipeline.Coordinator
	db         *database.Database
	archiver   archive.Archiver
	algorithms []digest.Algorithm
	started    time.Time
}

// New creates the handlers. db may be nil, in which case the history
// endpoints answer 503.
func New(coord *pipeline.Coordinator, db *database.Database, archiver archive.Archiver, config *startup.Config) *Handlers {
	algs := config.DefaultAlgorithms
	if len(algs) == 0 {
		algs = []digest.Algorithm{digest.SHA256}
	}
	return &Handlers{
		coord:      coord,
		db:         db,
		archiver:   archiver,
		algorithms: algs,
		started:    time.Now(),
	}
}

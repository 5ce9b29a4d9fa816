package database

import (
	"context"
	"sync"

	"hashdrop/internal/logging"
	"hashdrop/internal/pipeline"
)

// Recorder saves every finished batch. It observes the pipeline and writes
// on its own goroutine so the coordinator never waits on SQLite.
type Recorder struct {
	db    *Database
	queue chan Batch
	wg    sync.WaitGroup
	once  sync.Once
}

// NewRecorder starts a recorder writing to db.
func NewRecorder(db *Database) *Recorder {
	r := &Recorder{
		db:    db,
		queue: make(chan Batch, 16),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Observe implements pipeline.Observer.
func (r *Recorder) Observe(e pipeline.Event) {
	if e.Type != pipeline.EventBatchFinished || e.Summary == nil {
		return
	}

	select {
	case r.queue <- FromSummary(*e.Summary):
	default:
		logging.Warn("Batch history queue full, not saving batch %s", e.Summary.ID)
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for b := range r.queue {
		if err := r.db.SaveBatch(context.Background(), b); err != nil {
			logging.Error("Failed to save batch %s: %v", b.ID, err)
			continue
		}
		logging.Debug("Saved batch %s (%d records)", b.ID, len(b.Records))
	}
}

// Close flushes pending batches and stops the recorder. The recorder must
// be unsubscribed first.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

// FromSummary converts a pipeline summary into its stored form.
func FromSummary(s pipeline.Summary) Batch {
	algs := make([]string, len(s.Algorithms))
	for i, a := range s.Algorithms {
		algs[i] = string(a)
	}
	inputs := append([]string{}, s.Paths...)

	return Batch{
		BatchInfo: BatchInfo{
			ID:            s.ID,
			Inputs:        inputs,
			Algorithms:    algs,
			Scan:          s.Scan,
			Files:         s.Files,
			Digests:       s.Digests,
			Errors:        s.Errors,
			Skipped:       s.Skipped,
			Groups:        s.Groups,
			Cancelled:     s.Cancelled,
			DigestSeconds: s.DigestSeconds,
			StartedAt:     s.StartedAt,
			FinishedAt:    s.FinishedAt,
		},
		Records: s.Records,
	}
}

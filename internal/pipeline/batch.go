package pipeline

import (
	"context"
	"errors"
	"time"

	"hashdrop/internal/digest"
	"hashdrop/internal/logging"
	"hashdrop/internal/metadata"
	"hashdrop/internal/metrics"
	"hashdrop/internal/rules"
	"hashdrop/internal/table"
)

type batch struct {
	id        string
	req       Request
	started   time.Time
	cancel    context.CancelFunc
	cancelled bool
	handle    *Handle

	total    int
	progress int
	paths    []string
	digest   digest.Summary
}

type messageKind int

const (
	msgSize messageKind = iota
	msgRecord
	msgDigest
	msgDigestComplete
	msgFinished
)

// message is the only thing the batch goroutine shares with the
// coordinator. Records are handed over by value.
type message struct {
	kind    messageKind
	batchID string
	count   int
	record  metadata.Record
	result  digest.Result
	summary digest.Summary
}

// send hands msg to the coordinator. It returns false once the
// coordinator is closing.
func (c *Coordinator) send(msg message) bool {
	select {
	case c.inbox <- msg:
		return true
	case <-c.quit:
		return false
	}
}

// produce runs the stages of one batch: count, stream and extract in
// discovery order, then digest every (path, algorithm) pair.
func (c *Coordinator) produce(digestCtx context.Context, id string, req Request) {
	finish := func() {
		c.send(message{kind: msgFinished, batchID: id})
	}

	total, err := c.expander.Count(c.life, req.Paths)
	if err != nil {
		logging.Warn("Batch %s: count failed: %v", id, err)
	}
	if !c.send(message{kind: msgSize, batchID: id, count: total}) {
		return
	}

	seq, err := c.expander.Stream(c.life, req.Paths)
	if err != nil {
		logging.Error("Batch %s: expansion failed: %v", id, err)
		finish()
		return
	}

	paths := make([]string, 0, total)
	for {
		path, ok := seq.Next()
		if !ok {
			break
		}
		rec := c.extractor.Extract(path, len(paths), req.Scan)
		paths = append(paths, path)
		if !c.send(message{kind: msgRecord, batchID: id, record: rec}) {
			seq.Close()
			return
		}
	}
	if err := seq.Err(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn("Batch %s: %v", id, err)
	}

	run := c.engine.Start(digestCtx, digest.Jobs(paths, req.Algorithms))
	closing := false
	for res := range run.Results() {
		if closing {
			continue
		}
		if !c.send(message{kind: msgDigest, batchID: id, result: res}) {
			closing = true
		}
	}
	if closing {
		return
	}

	if !c.send(message{kind: msgDigestComplete, batchID: id, summary: run.Summary()}) {
		return
	}
	finish()
}

// handle applies one producer message on the coordinator goroutine.
func (c *Coordinator) handle(msg message) {
	b := c.current
	if b == nil || b.id != msg.batchID {
		return
	}

	switch msg.kind {
	case msgSize:
		b.total = msg.count
		c.emit(Event{Type: EventBatchSize, BatchID: b.id, Count: msg.count})

	case msgRecord:
		if err := c.table.Insert(msg.record); err != nil {
			logging.Warn("Batch %s: %v", b.id, err)
			return
		}
		b.paths = append(b.paths, msg.record.Path)
		rec := msg.record.Clone()
		c.emit(Event{Type: EventRecordReady, BatchID: b.id, Record: &rec})
		if b.req.Scan && len(rec.ScanMatches) == 1 && rec.ScanMatches[0] == metadata.ErrorPlaceholder {
			c.emit(Event{Type: EventScanDiagnostic, BatchID: b.id, Diagnostic: &rules.Diagnostic{
				Level:   rules.LevelError,
				Source:  rec.Path,
				Message: "content scan failed",
			}})
		}
		c.advance(b)

	case msgDigest:
		res := msg.result
		err := c.table.ApplyDigest(res.Path, res.Algorithm, res.Value)
		switch {
		case errors.Is(err, table.ErrUnknownPath):
			// removed while its digests were in flight
			logging.Debug("Batch %s: dropping %s digest of removed %s", b.id, res.Algorithm, res.Path)
		case err != nil:
			logging.Warn("Batch %s: %v", b.id, err)
		default:
			c.emit(Event{
				Type:      EventDigestResult,
				BatchID:   b.id,
				Path:      res.Path,
				Algorithm: res.Algorithm,
				Value:     res.Value,
			})
		}
		c.advance(b)

	case msgDigestComplete:
		b.digest = msg.summary
		logging.Info("Batch %s: %d digests in %.3fs (%d errors, %d skipped)",
			b.id, msg.summary.Completed, msg.summary.Elapsed.Seconds(), msg.summary.Errors, msg.summary.Skipped)
		c.emit(Event{Type: EventBatchDigestComplete, BatchID: b.id, ElapsedSeconds: msg.summary.Elapsed.Seconds()})

	case msgFinished:
		c.finish(b)
	}
}

func (c *Coordinator) advance(b *batch) {
	b.progress++
	c.emit(Event{Type: EventProgress, BatchID: b.id, Progress: b.progress})
}

func (c *Coordinator) finish(b *batch) {
	b.cancel()
	finished := time.Now()

	records := make([]metadata.Record, 0, c.table.Len())
	for _, v := range c.table.All() {
		records = append(records, v.Record)
	}

	summary := Summary{
		ID:            b.id,
		Paths:         append([]string(nil), b.req.Paths...),
		Algorithms:    append([]digest.Algorithm(nil), b.req.Algorithms...),
		Scan:          b.req.Scan,
		Files:         len(b.paths),
		Digests:       b.digest.Completed,
		Errors:        b.digest.Errors,
		Skipped:       b.digest.Skipped,
		Groups:        c.table.Stats().Groups,
		Cancelled:     b.cancelled,
		DigestSeconds: b.digest.Elapsed.Seconds(),
		StartedAt:     b.started,
		FinishedAt:    finished,
		Records:       records,
	}

	status := "completed"
	if b.cancelled {
		status = "cancelled"
	}
	metrics.BatchesTotal.WithLabelValues(status).Inc()
	metrics.BatchDuration.Observe(finished.Sub(b.started).Seconds())
	metrics.BatchRunning.Set(0)

	logging.Info("Batch %s %s: %s", b.id, status, summary)

	c.current = nil
	c.last = &summary
	b.handle.summary = summary
	close(b.handle.done)

	c.emit(Event{Type: EventBatchFinished, BatchID: b.id, Summary: &summary})
}

package pipeline

import (
	"fmt"
	"sync"
	"time"

	"hashdrop/internal/digest"
	"hashdrop/internal/metadata"
	"hashdrop/internal/rules"
)

// EventType names a pipeline event.
type EventType string

const (
	// EventBatchStarted opens a batch
	EventBatchStarted EventType = "batch_started"
	// EventBatchSize reports the number of files, before any record
	EventBatchSize EventType = "batch_size"
	// EventRecordReady carries one record, in discovery order
	EventRecordReady EventType = "record_ready"
	// EventProgress carries the monotonic progress counter
	EventProgress EventType = "progress"
	// EventDigestResult carries one digest, in completion order
	EventDigestResult EventType = "digest_result"
	// EventBatchDigestComplete reports the digest stage wall-clock time
	EventBatchDigestComplete EventType = "batch_digest_complete"
	// EventScanDiagnostic carries a rule compile or scan message
	EventScanDiagnostic EventType = "scan_diagnostic"
	// EventBatchFinished closes a batch
	EventBatchFinished EventType = "batch_finished"
)

// Event is one message to observers. Only the fields relevant to Type are
// set.
type Event struct {
	Type    EventType `json:"type"`
	BatchID string    `json:"batchId,omitempty"`

	Count    int              `json:"count,omitempty"`
	Record   *metadata.Record `json:"record,omitempty"`
	Progress int              `json:"progress,omitempty"`

	Path      string           `json:"path,omitempty"`
	Algorithm digest.Algorithm `json:"algorithm,omitempty"`
	Value     string           `json:"value,omitempty"`

	ElapsedSeconds float64           `json:"elapsedSeconds,omitempty"`
	Diagnostic     *rules.Diagnostic `json:"diagnostic,omitempty"`
	Summary        *Summary          `json:"summary,omitempty"`
}

// Summary describes a finished batch.
type Summary struct {
	ID         string             `json:"id"`
	Paths      []string           `json:"paths"`
	Algorithms []digest.Algorithm `json:"algorithms"`
	Scan       bool               `json:"scan"`
	Files      int                `json:"files"`
	Digests    int                `json:"digests"`
	Errors     int                `json:"errors"`
	Skipped    int                `json:"skipped"`
	Groups     int                `json:"groups"`
	Cancelled  bool               `json:"cancelled"`
	// DigestSeconds is the digest stage wall-clock time
	DigestSeconds float64           `json:"digestSeconds"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
	Records       []metadata.Record `json:"records,omitempty"`
}

// String is the one-line batch summary.
func (s Summary) String() string {
	return fmt.Sprintf("%d files hashed in %.3f seconds", s.Files, s.DigestSeconds)
}

// Observer receives pipeline events. Events are delivered one at a time,
// in order, from the coordinator goroutine, so implementations must return
// quickly and must not call back into the coordinator synchronously.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

type observers struct {
	mu     sync.RWMutex
	nextID int
	byID   map[int]Observer
	order  []int
}

func (o *observers) add(obs Observer) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.byID == nil {
		o.byID = make(map[int]Observer)
	}
	id := o.nextID
	o.nextID++
	o.byID[id] = obs
	o.order = append(o.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.byID, id)
			for i, v := range o.order {
				if v == id {
					o.order = append(o.order[:i], o.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (o *observers) len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

func (o *observers) emit(e Event) {
	o.mu.RLock()
	list := make([]Observer, 0, len(o.order))
	for _, id := range o.order {
		list = append(list, o.byID[id])
	}
	o.mu.RUnlock()

	for _, obs := range list {
		obs.Observe(e)
	}
}

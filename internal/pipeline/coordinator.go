package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hashdrop/internal/digest"
	"hashdrop/internal/expand"
	"hashdrop/internal/logging"
	"hashdrop/internal/metadata"
	"hashdrop/internal/metrics"
	"hashdrop/internal/rules"
	"hashdrop/internal/table"
)

var (
	// ErrBatchRunning is returned by Start while another batch is active.
	ErrBatchRunning = errors.New("a batch is already running")
	// ErrNoBatch is returned by Cancel when nothing is running.
	ErrNoBatch = errors.New("no batch is running")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("coordinator closed")
	// ErrNoScanner is returned by ReloadRules without a content scanner.
	ErrNoScanner = errors.New("content scanning is not configured")
)

// Request is one submitted batch.
type Request struct {
	Paths      []string           `json:"paths"`
	Algorithms []digest.Algorithm `json:"algorithms"`
	Scan       bool               `json:"scan"`
}

// Config configures a Coordinator
type Config struct {
	Expand expand.Options
	Digest digest.Config
	// ChannelBuffer bounds the hand-off from the batch goroutine to the
	// coordinator
	ChannelBuffer int
	// RulesDir is where ReloadRules looks for rule sources
	RulesDir string
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Expand:        expand.DefaultOptions(),
		Digest:        digest.DefaultConfig(),
		ChannelBuffer: 256,
		RulesDir:      "./rules",
	}
}

// Coordinator runs batches and owns the record table. A single goroutine
// applies every mutation; batch stages hand it immutable messages over a
// bounded channel, and readers get copies through Do.
type Coordinator struct {
	config    Config
	expander  *expand.Expander
	extractor *metadata.Extractor
	engine    *digest.Engine
	scanner   *rules.Scanner

	ops   chan func()
	inbox chan message
	quit  chan struct{}
	done  chan struct{}

	// life is cancelled by Close and parents every batch context
	life     context.Context
	shutdown context.CancelFunc

	observers observers

	// owned by the loop goroutine
	table   *table.Table
	current *batch
	last    *Summary
}

// New creates and starts a coordinator. scanner may be nil.
func New(config Config, extractor *metadata.Extractor, scanner *rules.Scanner) *Coordinator {
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = DefaultConfig().ChannelBuffer
	}

	c := &Coordinator{
		config:    config,
		expander:  expand.New(config.Expand),
		extractor: extractor,
		engine:    digest.NewEngine(config.Digest),
		scanner:   scanner,
		ops:       make(chan func()),
		inbox:     make(chan message, config.ChannelBuffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		table:     table.New(nil, false),
	}
	c.life, c.shutdown = context.WithCancel(context.Background())
	go c.loop()
	return c
}

// Subscribe registers an observer and returns a function that removes it.
func (c *Coordinator) Subscribe(o Observer) func() {
	return c.observers.add(o)
}

// Subscribers returns the number of registered observers.
func (c *Coordinator) Subscribers() int {
	return c.observers.len()
}

func (c *Coordinator) loop() {
	defer close(c.done)

	for {
		select {
		case op := <-c.ops:
			op()
		case msg := <-c.inbox:
			c.handle(msg)
		case <-c.quit:
			if b := c.current; b != nil {
				b.cancelled = true
				c.finish(b)
			}
			return
		}
	}
}

// Do runs fn on the coordinator goroutine with exclusive access to the
// table and waits for it to return. fn must not retain the table.
func (c *Coordinator) Do(ctx context.Context, fn func(*table.Table)) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn(c.table)
	}

	select {
	case c.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close stops the coordinator. A running batch is cancelled.
func (c *Coordinator) Close() {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
	c.shutdown()
	<-c.done
}

func (c *Coordinator) emit(e Event) {
	c.observers.emit(e)
}

// Handle is returned by Start and lets the caller wait for the batch.
type Handle struct {
	ID      string
	done    chan struct{}
	summary Summary
}

// Done is closed when the batch has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the batch finishes and returns its summary.
func (h *Handle) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-h.done:
		return h.summary, nil
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

// Start begins a batch and returns immediately. It fails with
// ErrBatchRunning while another batch is active and with
// expand.ErrNoInputs when no paths were given.
func (c *Coordinator) Start(ctx context.Context, req Request) (*Handle, error) {
	if len(req.Paths) == 0 {
		return nil, expand.ErrNoInputs
	}

	var h *Handle
	var startErr error
	err := c.Do(ctx, func(t *table.Table) {
		if c.current != nil {
			startErr = ErrBatchRunning
			return
		}

		digestCtx, cancel := context.WithCancel(c.life)
		b := &batch{
			id:      uuid.NewString(),
			req:     req,
			started: time.Now(),
			cancel:  cancel,
			handle:  &Handle{done: make(chan struct{})},
		}
		b.handle.ID = b.id
		c.current = b
		h = b.handle

		t.Reset(req.Algorithms, req.Scan)
		metrics.BatchRunning.Set(1)
		logging.Info("Batch %s started: %d inputs, algorithms %v, scan %v", b.id, len(req.Paths), req.Algorithms, req.Scan)
		c.emit(Event{Type: EventBatchStarted, BatchID: b.id})

		go c.produce(digestCtx, b.id, req)
	})
	if err != nil {
		return nil, err
	}
	return h, startErr
}

// Run starts a batch and waits for it. Cancelling ctx cancels the digest
// stage; Run still waits for in-flight work to drain.
func (c *Coordinator) Run(ctx context.Context, req Request) (Summary, error) {
	h, err := c.Start(ctx, req)
	if err != nil {
		return Summary{}, err
	}

	select {
	case <-h.done:
	case <-ctx.Done():
		if err := c.Cancel(context.Background()); err != nil && !errors.Is(err, ErrNoBatch) {
			logging.Warn("Cancel failed: %v", err)
		}
		<-h.done
	}
	return h.summary, nil
}

// Cancel stops scheduling digest jobs for the running batch. Jobs already
// being hashed finish and are delivered. Metadata extraction is not
// interrupted.
func (c *Coordinator) Cancel(ctx context.Context) error {
	var cancelErr error
	err := c.Do(ctx, func(*table.Table) {
		if c.current == nil {
			cancelErr = ErrNoBatch
			return
		}
		c.current.cancelled = true
		c.current.cancel()
		logging.Info("Batch %s cancellation requested", c.current.id)
	})
	if err != nil {
		return err
	}
	return cancelErr
}

// Status describes the current or most recent batch.
type Status struct {
	ID         string             `json:"id,omitempty"`
	Running    bool               `json:"running"`
	Total      int                `json:"total"`
	Records    int                `json:"records"`
	Progress   int                `json:"progress"`
	Expected   int                `json:"expected"`
	Algorithms []digest.Algorithm `json:"algorithms"`
	Scan       bool               `json:"scan"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
	Last       *Summary           `json:"last,omitempty"`
}

// Snapshot is an immutable copy of the table for readers.
type Snapshot struct {
	Status Status        `json:"status"`
	Stats  table.Stats   `json:"stats"`
	Search table.Search  `json:"search"`
	Rows   []table.View  `json:"rows"`
	Groups []table.Group `json:"groups,omitempty"`
}

func (c *Coordinator) status(t *table.Table) Status {
	s := Status{Algorithms: t.Algorithms(), Scan: t.Scanned(), Records: t.Len()}
	if c.last != nil {
		last := *c.last
		last.Records = nil
		s.Last = &last
		s.ID = last.ID
	}
	if b := c.current; b != nil {
		started := b.started
		s.ID = b.id
		s.Running = true
		s.Total = b.total
		s.Progress = b.progress
		s.Expected = b.total * (1 + len(b.req.Algorithms))
		s.StartedAt = &started
	}
	return s
}

// Status returns the current batch status.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.Do(ctx, func(t *table.Table) {
		s = c.status(t)
	})
	return s, err
}

// Snapshot copies the visible rows, statistics and groups.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.Do(ctx, func(t *table.Table) {
		snap = Snapshot{
			Status: c.status(t),
			Stats:  t.Stats(),
			Search: t.CurrentSearch(),
			Rows:   t.Visible(),
			Groups: t.Groups(),
		}
	})
	return snap, err
}

// Remove deletes records by path and returns how many were removed.
func (c *Coordinator) Remove(ctx context.Context, paths []string) (int, error) {
	var n int
	err := c.Do(ctx, func(t *table.Table) {
		n = t.Remove(paths...)
	})
	return n, err
}

// SetHideDuplicates toggles duplicate filtering.
func (c *Coordinator) SetHideDuplicates(ctx context.Context, hide bool) error {
	return c.Do(ctx, func(t *table.Table) {
		t.SetHideDuplicates(hide)
	})
}

// SetSearch installs a search filter.
func (c *Coordinator) SetSearch(ctx context.Context, s table.Search) error {
	var searchErr error
	if err := c.Do(ctx, func(t *table.Table) {
		searchErr = t.SetSearch(s)
	}); err != nil {
		return err
	}
	return searchErr
}

// ExportTSV renders the visible rows as TSV.
func (c *Coordinator) ExportTSV(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	var writeErr error
	if err := c.Do(ctx, func(t *table.Table) {
		writeErr = t.WriteTSV(&buf)
	}); err != nil {
		return nil, err
	}
	if writeErr != nil {
		return nil, fmt.Errorf("failed to export: %w", writeErr)
	}
	return buf.Bytes(), nil
}

// VisiblePaths returns the paths of the visible rows in row order.
func (c *Coordinator) VisiblePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := c.Do(ctx, func(t *table.Table) {
		for _, v := range t.Visible() {
			paths = append(paths, v.Path)
		}
	})
	return paths, err
}

// UnknownPaths returns the paths that are not records of the current table.
func (c *Coordinator) UnknownPaths(ctx context.Context, paths []string) ([]string, error) {
	var unknown []string
	err := c.Do(ctx, func(t *table.Table) {
		for _, p := range paths {
			if _, ok := t.Get(p); !ok {
				unknown = append(unknown, p)
			}
		}
	})
	return unknown, err
}

// ReloadRules recompiles the rule sources in the rules directory and
// reports each diagnostic as a ScanDiagnostic event.
func (c *Coordinator) ReloadRules(ctx context.Context) (rules.Diagnostics, error) {
	if c.scanner == nil {
		return nil, ErrNoScanner
	}
	diags := c.scanner.Reload(c.config.RulesDir)

	err := c.Do(ctx, func(*table.Table) {
		id := ""
		if c.current != nil {
			id = c.current.id
		}
		for i := range diags {
			d := diags[i]
			c.emit(Event{Type: EventScanDiagnostic, BatchID: id, Diagnostic: &d})
		}
	})
	return diags, err
}

// GetStats implements metrics.StatsProvider.
func (c *Coordinator) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var s metrics.Stats
	err := c.Do(ctx, func(t *table.Table) {
		st := t.Stats()
		s = metrics.Stats{
			Records:          st.Total,
			DuplicateGroups:  st.Groups,
			DuplicateRecords: st.DuplicateRecords,
		}
	})
	if err != nil {
		logging.Debug("Stats unavailable: %v", err)
	}
	s.Subscribers = c.Subscribers()
	return s
}

package digest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"hashdrop/internal/logging"
	"hashdrop/internal/metrics"
	"hashdrop/internal/workers"
)

// Job is one (path, algorithm) pair. Jobs are consumed exactly once.
type Job struct {
	Path      string
	Algorithm Algorithm
}

// Jobs returns the cross product of paths and algorithms, path-major.
func Jobs(paths []string, algs []Algorithm) []Job {
	jobs := make([]Job, 0, len(paths)*len(algs))
	for _, p := range paths {
		for _, a := range algs {
			jobs = append(jobs, Job{Path: p, Algorithm: a})
		}
	}
	return jobs
}

// Result is the outcome of one job. Value is the hex digest, an
// error-tagged string when the file could not be read, or empty for an
// unknown algorithm. Err carries the underlying failure, if any.
type Result struct {
	Path      string
	Algorithm Algorithm
	Value     string
	Err       error
}

// Summary describes a finished run.
type Summary struct {
	Jobs      int
	Completed int
	Errors    int
	Skipped   int
	Elapsed   time.Duration
}

// Config configures the worker pool
type Config struct {
	// Workers is the pool size (0 = one per available CPU)
	Workers int
	// ChannelBuffer bounds both the job queue and the result stream
	ChannelBuffer int
}

// DefaultConfig sizes the pool from GOMAXPROCS, honouring HASH_WORKERS.
func DefaultConfig() Config {
	return Config{
		Workers:       workers.ForCPU(0),
		ChannelBuffer: 256,
	}
}

// HashFunc computes one digest. File is the default.
type HashFunc func(path string, alg Algorithm) (string, error)

// Engine hashes files on a bounded worker pool.
type Engine struct {
	config Config
	hash   HashFunc
}

// NewEngine creates an engine. Zero fields in config fall back to
// DefaultConfig.
func NewEngine(config Config) *Engine {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = def.ChannelBuffer
	}
	return &Engine{config: config, hash: File}
}

// SetHashFunc replaces the function workers call for each job. It must
// be called before Start.
func (e *Engine) SetHashFunc(fn HashFunc) {
	e.hash = fn
}

// Workers returns the pool size.
func (e *Engine) Workers() int {
	return e.config.Workers
}

// Run is one in-progress set of jobs.
type Run struct {
	results chan Result
	done    chan struct{}
	summary Summary

	completed atomic.Int64
	errs      atomic.Int64
	skipped   atomic.Int64
}

// Start dispatches jobs to the pool and returns immediately. Results
// arrive on Results in completion order, which is unrelated to the order of
// jobs. Cancelling ctx stops dispatch of jobs that have not started; jobs
// already being hashed finish and are delivered. The caller must drain
// Results until it is closed.
func (e *Engine) Start(ctx context.Context, jobs []Job) *Run {
	r := &Run{
		results: make(chan Result, e.config.ChannelBuffer),
		done:    make(chan struct{}),
	}
	r.summary.Jobs = len(jobs)

	queue := make(chan Job, e.config.ChannelBuffer)
	start := time.Now()

	n := e.config.Workers
	if n > len(jobs) && len(jobs) > 0 {
		n = len(jobs)
	}
	metrics.DigestWorkers.Set(float64(n))
	logging.Debug("Starting digest pool: %d workers, %d jobs", n, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go e.worker(ctx, i, queue, r, &wg)
	}

	go func() {
		dispatched := 0
	dispatch:
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				break dispatch
			case queue <- job:
				dispatched++
			}
		}
		close(queue)

		wg.Wait()

		undispatched := int64(len(jobs) - dispatched)
		r.skipped.Add(undispatched)
		if undispatched > 0 {
			logging.Info("Digest dispatch cancelled, %d jobs not started", undispatched)
		}

		r.summary.Completed = int(r.completed.Load())
		r.summary.Errors = int(r.errs.Load())
		r.summary.Skipped = int(r.skipped.Load())
		r.summary.Elapsed = time.Since(start)
		metrics.DigestWorkers.Set(0)

		close(r.results)
		close(r.done)
	}()

	return r
}

func (e *Engine) worker(ctx context.Context, id int, queue <-chan Job, r *Run, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range queue {
		// Queued but not started: drop it once cancelled
		if ctx.Err() != nil {
			r.skipped.Add(1)
			metrics.DigestsTotal.WithLabelValues(string(job.Algorithm), "skipped").Inc()
			continue
		}

		metrics.DigestWorkersBusy.Inc()
		res := e.process(job)
		metrics.DigestWorkersBusy.Dec()

		r.completed.Add(1)
		if res.Err != nil && !errors.Is(res.Err, ErrUnknownAlgorithm) {
			r.errs.Add(1)
		}
		r.results <- res
	}

	logging.Debug("Digest worker %d finished", id)
}

func (e *Engine) process(job Job) Result {
	res := Result{Path: job.Path, Algorithm: job.Algorithm}

	value, err := e.hash(job.Path, job.Algorithm)
	switch {
	case errors.Is(err, ErrUnknownAlgorithm):
		res.Err = err
		metrics.DigestsTotal.WithLabelValues(string(job.Algorithm), "unknown").Inc()
	case err != nil:
		res.Err = err
		res.Value = ErrorValue(err)
		logging.Warn("Digest %s failed for %s: %v", job.Algorithm, job.Path, err)
		metrics.DigestsTotal.WithLabelValues(string(job.Algorithm), "error").Inc()
	default:
		res.Value = value
		metrics.DigestsTotal.WithLabelValues(string(job.Algorithm), "success").Inc()
	}
	return res
}

// Results streams completed jobs. It is closed after the last in-flight
// job has been delivered.
func (r *Run) Results() <-chan Result {
	return r.results
}

// Done is closed once the run has finished and Summary is final.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Summary blocks until the run has finished. Results must be drained
// concurrently or beforehand.
func (r *Run) Summary() Summary {
	<-r.done
	return r.summary
}

// Run is the synchronous form of Start: fn is called for every result on
// the calling goroutine, then the summary is returned.
func (e *Engine) Run(ctx context.Context, jobs []Job, fn func(Result)) Summary {
	run := e.Start(ctx, jobs)
	for res := range run.Results() {
		if fn != nil {
			fn(res)
		}
	}
	return run.Summary()
}

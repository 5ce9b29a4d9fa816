package expand

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hashdrop/internal/filesystem"
	"hashdrop/internal/logging"
	"hashdrop/internal/metrics"
)

// ErrNoInputs is returned when no paths were supplied.
var ErrNoInputs = errors.New("no input paths")

// Options configures directory expansion
type Options struct {
	// SkipHidden skips dot-files and dot-directories found inside a
	// directory. Explicitly supplied paths are always included.
	SkipHidden bool
	// FollowSymlinks descends into symlinked directories
	FollowSymlinks bool
	// MaxDepth bounds recursion below each supplied directory
	MaxDepth int
	// ChannelBuffer is the size of the Sequence buffer
	ChannelBuffer int
}

// DefaultOptions returns the defaults used by the server and CLI.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		FollowSymlinks: true,
		MaxDepth:       64,
		ChannelBuffer:  256,
	}
}

// Expander turns user-selected files and directories into a flat, ordered
// list of file paths.
type Expander struct {
	opts Options
}

// New creates an Expander.
func New(opts Options) *Expander {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	if opts.ChannelBuffer <= 0 {
		opts.ChannelBuffer = DefaultOptions().ChannelBuffer
	}
	return &Expander{opts: opts}
}

// Count walks inputs and returns the number of files Stream would yield.
func (e *Expander) Count(ctx context.Context, inputs []string) (int, error) {
	if len(inputs) == 0 {
		return 0, ErrNoInputs
	}

	n := 0
	err := e.walk(ctx, inputs, func(string) bool {
		n++
		return true
	})
	return n, err
}

// Expand walks inputs and returns every file path in order.
func (e *Expander) Expand(ctx context.Context, inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	var paths []string
	err := e.walk(ctx, inputs, func(p string) bool {
		paths = append(paths, p)
		return true
	})
	return paths, err
}

// Stream starts a walker goroutine and returns the sequence it feeds.
func (e *Expander) Stream(ctx context.Context, inputs []string) (*Sequence, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan string, e.opts.ChannelBuffer)
	seq := &Sequence{ch: ch, cancel: cancel}

	go func() {
		defer close(ch)
		err := e.walk(ctx, inputs, func(p string) bool {
			select {
			case ch <- p:
				metrics.FilesExpandedTotal.Inc()
				return true
			case <-ctx.Done():
				return false
			}
		})
		seq.err = err
	}()

	return seq, nil
}

// walk visits inputs in order, calling emit for each file. emit returns
// false to stop the walk.
func (e *Expander) walk(ctx context.Context, inputs []string, emit func(string) bool) error {
	w := &walker{
		opts:    e.opts,
		ctx:     ctx,
		emit:    emit,
		emitted: make(map[string]bool),
		onPath:  make(map[fileID]bool),
	}

	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			logging.Warn("Skipping input %s: %v", input, err)
			continue
		}

		info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig())
		if err != nil {
			logging.Warn("Skipping input %s: %v", abs, err)
			continue
		}

		if info.IsDir() {
			if !w.dir(abs, 0) {
				break
			}
			continue
		}

		// FIFOs and devices would block or never end when opened
		if !info.Mode().IsRegular() {
			logging.Warn("Skipping input %s: not a regular file (%s)", abs, info.Mode().Type())
			continue
		}

		if !w.file(abs) {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("expansion interrupted: %w", err)
	}
	return nil
}

type walker struct {
	opts    Options
	ctx     context.Context
	emit    func(string) bool
	emitted map[string]bool
	// directories on the current descent path
	onPath map[fileID]bool
}

func (w *walker) file(path string) bool {
	if w.emitted[path] {
		return true
	}
	w.emitted[path] = true
	return w.emit(path)
}

// dir walks one directory depth-first in lexical order. It returns false
// when the walk should stop.
func (w *walker) dir(path string, depth int) bool {
	if w.ctx.Err() != nil {
		return false
	}

	if depth > w.opts.MaxDepth {
		logging.Warn("Not descending into %s: deeper than %d levels", path, w.opts.MaxDepth)
		return true
	}

	id, ok := identify(path)
	if ok {
		if w.onPath[id] {
			logging.Warn("Not descending into %s: symlink cycle", path)
			return true
		}
		w.onPath[id] = true
		defer delete(w.onPath, id)
	}

	// os.ReadDir returns entries sorted by name
	entries, err := os.ReadDir(path)
	if err != nil {
		logging.Warn("Error reading directory %s: %v", path, err)
		return true
	}

	for _, entry := range entries {
		name := entry.Name()
		if w.opts.SkipHidden && strings.HasPrefix(name, ".") {
			continue
		}

		full := filepath.Join(path, name)
		mode := entry.Type()

		if mode&os.ModeSymlink != 0 {
			target, err := os.Stat(full)
			if err != nil {
				logging.Debug("Skipping broken symlink %s: %v", full, err)
				continue
			}
			if target.IsDir() {
				if !w.opts.FollowSymlinks {
					continue
				}
				if !w.dir(full, depth+1) {
					return false
				}
				continue
			}
			if !target.Mode().IsRegular() {
				continue
			}
			if !w.file(full) {
				return false
			}
			continue
		}

		switch {
		case mode.IsDir():
			if !w.dir(full, depth+1) {
				return false
			}
		case mode.IsRegular():
			if !w.file(full) {
				return false
			}
		}
	}
	return true
}

// Sequence is a single-pass stream of file paths. It cannot be restarted.
type Sequence struct {
	ch     <-chan string
	cancel context.CancelFunc
	err    error
}

// Next returns the next path, or false once the sequence is exhausted.
func (s *Sequence) Next() (string, bool) {
	p, ok := <-s.ch
	return p, ok
}

// Close stops the walker and drains what it already produced.
func (s *Sequence) Close() {
	s.cancel()
	for range s.ch {
	}
}

// Err returns the walk error once Next has returned false.
func (s *Sequence) Err() error {
	return s.err
}

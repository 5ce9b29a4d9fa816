package streaming

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"hashdrop/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write exceeded the configured timeout.
	// This typically occurs when a client is receiving data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	// This is detected via the request context being canceled.
	ErrClientGone = errors.New("client disconnected")
)

// Config configures an EventWriter
type Config struct {
	// WriteTimeout is the maximum time to wait for a single event to be written
	WriteTimeout time.Duration
	// KeepAlive is how often an idle stream sends a comment line
	KeepAlive time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		KeepAlive:    15 * time.Second,
	}
}

// EventWriter writes server-sent events to an HTTP response. Every write
// carries a deadline and is flushed, so a stalled client fails the write
// instead of holding the handler.
type EventWriter struct {
	ctx    context.Context
	w      http.ResponseWriter
	rc     *http.ResponseController
	config Config

	mu           sync.Mutex
	startTime    time.Time
	events       int64
	bytesWritten int64
}

// NewEventWriter wraps w. ctx is normally the request context.
func NewEventWriter(ctx context.Context, w http.ResponseWriter, config Config) *EventWriter {
	def := DefaultConfig()
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = def.KeepAlive
	}
	return &EventWriter{
		ctx:       ctx,
		w:         w,
		rc:        http.NewResponseController(w),
		config:    config,
		startTime: time.Now(),
	}
}

// KeepAlive returns the configured keep-alive interval.
func (ew *EventWriter) KeepAlive() time.Duration {
	return ew.config.KeepAlive
}

// Open sends the stream headers and a first comment so clients see the
// connection established before any event.
func (ew *EventWriter) Open() error {
	h := ew.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	ew.w.WriteHeader(http.StatusOK)
	return ew.Comment("connected")
}

// Comment writes a comment line, ignored by EventSource clients.
func (ew *EventWriter) Comment(text string) error {
	return ew.write([]byte(": " + text + "\n\n"))
}

// Event writes one named event. Each line of data gets its own data:
// field.
func (ew *EventWriter) Event(name string, data []byte) error {
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(name)
	buf.WriteByte('\n')
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	if err := ew.write(buf.Bytes()); err != nil {
		return err
	}
	ew.mu.Lock()
	ew.events++
	ew.mu.Unlock()
	return nil
}

func (ew *EventWriter) write(p []byte) error {
	select {
	case <-ew.ctx.Done():
		return ErrClientGone
	default:
	}

	if err := ew.rc.SetWriteDeadline(time.Now().Add(ew.config.WriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}

	n, err := ew.w.Write(p)
	if err == nil {
		err = ew.rc.Flush()
		if errors.Is(err, http.ErrNotSupported) {
			err = nil
		}
	}

	ew.mu.Lock()
	ew.bytesWritten += int64(n)
	ew.mu.Unlock()

	if errors.Is(err, os.ErrDeadlineExceeded) {
		logging.Warn("Event stream write timed out after %v", ew.config.WriteTimeout)
		return ErrWriteTimeout
	}
	return err
}

// Stats returns streaming statistics
func (ew *EventWriter) Stats() (events, bytesWritten int64, duration time.Duration) {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	return ew.events, ew.bytesWritten, time.Since(ew.startTime)
}

package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.WriteTimeout <= 0 || config.KeepAlive <= 0 {
		t.Errorf("defaults should be positive: %+v", config)
	}

	ew := NewEventWriter(context.Background(), httptest.NewRecorder(), Config{})
	if ew.KeepAlive() != config.KeepAlive {
		t.Errorf("zero config should fall back to defaults, got %v", ew.KeepAlive())
	}
}

func TestOpenAndEvents(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	ew := NewEventWriter(context.Background(), w, DefaultConfig())

	if err := ew.Open(); err != nil {
		t.Fatal(err)
	}
	if err := ew.Event("progress", []byte(`{"progress":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := ew.Event("multi", []byte("a\nb")); err != nil {
		t.Fatal(err)
	}
	if err := ew.Comment("keep-alive"); err != nil {
		t.Fatal(err)
	}

	want := ": connected\n\n" +
		"event: progress\ndata: {\"progress\":1}\n\n" +
		"event: multi\ndata: a\ndata: b\n\n" +
		": keep-alive\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !w.Flushed {
		t.Error("events should be flushed")
	}

	events, bytesWritten, _ := ew.Stats()
	if events != 2 || bytesWritten != int64(len(want)) {
		t.Errorf("Stats = %d events, %d bytes", events, bytesWritten)
	}
}

func TestClientGone(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	ew := NewEventWriter(ctx, httptest.NewRecorder(), DefaultConfig())
	cancel()

	if err := ew.Event("x", nil); !errors.Is(err, ErrClientGone) {
		t.Errorf("Event after cancel = %v, want ErrClientGone", err)
	}
}

// TestRealConnection checks the deadline path against a real server,
// where ResponseController supports write deadlines.
func TestRealConnection(t *testing.T) {
	t.Parallel()
	done := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ew := NewEventWriter(r.Context(), w, Config{WriteTimeout: time.Second, KeepAlive: time.Second})
		if err := ew.Open(); err != nil {
			done <- err
			return
		}
		done <- ew.Event("hello", []byte("world"))
	}))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}

	if err := <-done; err != nil {
		t.Errorf("write on a live connection failed: %v", err)
	}
	if string(body) != ": connected\n\nevent: hello\ndata: world\n\n" {
		t.Errorf("body = %q", body)
	}
}

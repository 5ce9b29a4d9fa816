package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hashdrop/internal/logging"
	"hashdrop/internal/pipeline"
	"hashdrop/internal/streaming"
)

// StreamEvents streams pipeline events as server-sent events. Each client
// gets its own bounded queue; when it is full, events are dropped for that
// client only and a "dropped" comment tells it to resynchronise from
// /api/records.
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	queue := make(chan pipeline.Event, eventBuffer)
	dropped := make(chan struct{}, 1)
	unsubscribe := h.coord.Subscribe(pipeline.ObserverFunc(func(e pipeline.Event) {
		select {
		case queue <- streamable(e):
		default:
			select {
			case dropped <- struct{}{}:
			default:
			}
		}
	}))
	defer unsubscribe()

	ew := streaming.NewEventWriter(r.Context(), w, streaming.DefaultConfig())
	if err := ew.Open(); err != nil {
		return
	}
	defer func() {
		events, n, d := ew.Stats()
		logging.Debug("Event stream closed after %v: %d events, %d bytes", d.Round(time.Millisecond), events, n)
	}()

	ticker := time.NewTicker(ew.KeepAlive())
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			err = ew.Comment("keep-alive")
		case <-dropped:
			err = ew.Comment("dropped")
		case e := <-queue:
			err = writeEvent(ew, e)
		}
		if err != nil {
			if !errors.Is(err, streaming.ErrClientGone) {
				logging.Debug("Event stream write failed: %v", err)
			}
			return
		}
	}
}

// streamable strips the per-record payload from a finished batch summary;
// clients read records as they arrive or from /api/records.
func streamable(e pipeline.Event) pipeline.Event {
	if e.Summary != nil && e.Summary.Records != nil {
		s := *e.Summary
		s.Records = nil
		e.Summary = &s
	}
	return e
}

func writeEvent(ew *streaming.EventWriter, e pipeline.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return ew.Event(string(e.Type), data)
}

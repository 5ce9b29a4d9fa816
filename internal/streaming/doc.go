/*
Package streaming writes server-sent event streams with timeout protection.

Slow or vanished clients can hold a handler indefinitely on a long-lived
response. EventWriter bounds every write with a deadline through
http.ResponseController, flushes after each event and reports a cancelled
request context as ErrClientGone.

	ew := streaming.NewEventWriter(r.Context(), w, streaming.DefaultConfig())
	if err := ew.Open(); err != nil {
		return
	}
	for e := range events {
		if err := ew.Event(e.Name, e.Data); err != nil {
			return
		}
	}

Middleware wrapping the ResponseWriter must forward Flush and expose
Unwrap so the deadline reaches the connection.
*/
package streaming

package middleware

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

// compressibleTypes are the bodies this API produces that shrink well:
// JSON responses and the TSV export. Zips and event streams are left alone.
var compressibleTypes = map[string]bool{
	"application/json":          true,
	"text/tab-separated-values": true,
	"text/plain":                true,
}

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest first write that gets compressed
	MinSize int
	// EventsPath is never compressed; every event must reach the client on flush
	EventsPath string
}

// DefaultCompressionConfig compresses bodies of 1KB and more.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:    1024,
		EventsPath: "/api/events",
	}
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter decides on the first Write. Handlers here write each
// body with a single call (json.Encoder, TSV bytes), so the first write's
// size is the body size.
type gzipResponseWriter struct {
	http.ResponseWriter
	minSize    int
	statusCode int
	decided    bool
	gz         *gzip.Writer
}

func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if !g.decided {
		g.statusCode = statusCode
	}
}

func (g *gzipResponseWriter) decide(size int) {
	g.decided = true
	h := g.Header()
	mediaType, _, _ := mime.ParseMediaType(h.Get("Content-Type"))
	if size >= g.minSize && compressibleTypes[mediaType] && h.Get("Content-Encoding") == "" {
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		g.gz = gzipWriterPool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
	}
	if g.statusCode != 0 {
		g.ResponseWriter.WriteHeader(g.statusCode)
	}
}

func (g *gzipResponseWriter) Write(p []byte) (int, error) {
	if !g.decided {
		g.decide(len(p))
	}
	if g.gz != nil {
		return g.gz.Write(p)
	}
	return g.ResponseWriter.Write(p)
}

func (g *gzipResponseWriter) Flush() {
	if !g.decided {
		g.decide(0)
	}
	if g.gz != nil {
		g.gz.Flush()
	}
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (g *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

// close ends the gzip stream, or sends a status the handler set without
// writing a body.
func (g *gzipResponseWriter) close() error {
	if !g.decided {
		g.decided = true
		if g.statusCode != 0 {
			g.ResponseWriter.WriteHeader(g.statusCode)
		}
		return nil
	}
	if g.gz == nil {
		return nil
	}
	err := g.gz.Close()
	gzipWriterPool.Put(g.gz)
	g.gz = nil
	return err
}

// Compression gzips JSON and TSV responses for clients that accept it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
				r.URL.Path == config.EventsPath ||
				strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
				next.ServeHTTP(w, r)
				return
			}

			gzw := &gzipResponseWriter{ResponseWriter: w, minSize: config.MinSize}
			defer gzw.close()
			next.ServeHTTP(gzw, r)
		})
	}
}

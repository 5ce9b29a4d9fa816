// Package middleware provides the HTTP middleware of the hashdrop server.
//
// It includes:
//   - Request logging in W3C Extended Log Format with the batch ID column,
//     and one summary line per closed event stream
//   - Prometheus request metrics labelled by route template
//   - gzip compression of JSON and TSV responses, never of the event stream
//   - Bearer token authentication against a bcrypt hash
package middleware

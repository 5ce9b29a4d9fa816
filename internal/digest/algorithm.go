package digest

import (
	"crypto/md5"  //nolint:gosec // MD5 is offered for duplicate matching, not security
	"crypto/sha1" //nolint:gosec // SHA-1 is offered for duplicate matching, not security
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"hashdrop/internal/filesystem"
	"hashdrop/internal/metrics"
)

// Algorithm identifies a digest algorithm by its canonical lower-case name.
type Algorithm string

const (
	// MD5 is the 128-bit MD5 digest
	MD5 Algorithm = "md5"
	// SHA1 is the 160-bit SHA-1 digest
	SHA1 Algorithm = "sha1"
	// SHA256 is the 256-bit SHA-2 digest
	SHA256 Algorithm = "sha256"
)

// ChunkSize is the read size used when streaming a file through a hash.
const ChunkSize = 8192

// ErrorPrefix tags a digest value that carries a failure instead of hex.
const ErrorPrefix = "error:"

// ErrUnknownAlgorithm is returned for algorithm names outside MD5, SHA-1
// and SHA-256.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// All returns every supported algorithm, weakest first.
func All() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256}
}

// ParseAlgorithm accepts "md5", "sha1", "sha-1", "sha256" and "sha-256" in
// any case.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "md5":
		return MD5, nil
	case "sha1", "sha-1":
		return SHA1, nil
	case "sha256", "sha-256":
		return SHA256, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// ParseList parses a comma separated algorithm list, dropping repeats while
// keeping first-seen order.
func ParseList(list string) ([]Algorithm, error) {
	var algs []Algorithm
	seen := make(map[Algorithm]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		alg, err := ParseAlgorithm(part)
		if err != nil {
			return nil, err
		}
		if !seen[alg] {
			seen[alg] = true
			algs = append(algs, alg)
		}
	}
	return algs, nil
}

// Label is the column heading for the algorithm.
func (a Algorithm) Label() string {
	switch a {
	case MD5:
		return "MD5"
	case SHA1:
		return "SHA-1"
	case SHA256:
		return "SHA-256"
	default:
		return strings.ToUpper(string(a))
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil //nolint:gosec // see import
	case SHA1:
		return sha1.New(), nil //nolint:gosec // see import
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// File hashes the file at path in ChunkSize reads and returns the lower-case
// hex digest. Memory use does not depend on the size of the file.
func File(path string, alg Algorithm) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}

	start := time.Now()

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("couldn't open file %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, ChunkSize)
	var total int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read from file %s: %w", path, err)
		}
	}

	metrics.DigestBytesTotal.WithLabelValues(string(alg)).Add(float64(total))
	metrics.DigestDuration.WithLabelValues(string(alg)).Observe(time.Since(start).Seconds())

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ErrorValue renders err as an error-tagged digest value.
func ErrorValue(err error) string {
	return ErrorPrefix + " " + err.Error()
}

// IsErrorValue reports whether v is an error-tagged digest value.
func IsErrorValue(v string) bool {
	return strings.HasPrefix(v, ErrorPrefix)
}

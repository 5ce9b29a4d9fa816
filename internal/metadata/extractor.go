package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hashdrop/internal/digest"
	"hashdrop/internal/filesystem"
	"hashdrop/internal/logging"
	"hashdrop/internal/metrics"
	"hashdrop/internal/rules"
	"hashdrop/internal/signature"
)

// SniffSize is how much of an oversized file is copied aside for type
// detection.
const SniffSize = 64 << 10

// ContentScanner matches a file against a rule set and returns the
// identifiers of the rules that matched, in rule order.
type ContentScanner interface {
	Scan(path string) ([]string, error)
}

// Extractor builds records. It is meant to be driven from a single
// goroutine, one file at a time.
type Extractor struct {
	detector       signature.Detector
	scanner        ContentScanner
	largeFileLimit int64
	tempDir        string
}

// NewExtractor creates an extractor. scanner may be nil when content
// scanning is never requested. largeFileLimit is the size above which only
// the first SniffSize bytes are sniffed; zero disables the fallback.
func NewExtractor(detector signature.Detector, scanner ContentScanner, largeFileLimit int64) *Extractor {
	return &Extractor{
		detector:       detector,
		scanner:        scanner,
		largeFileLimit: largeFileLimit,
	}
}

// SetTempDir sets where truncated copies are written. Empty means
// os.TempDir.
func (e *Extractor) SetTempDir(dir string) {
	e.tempDir = dir
}

// Extract builds the record for path. Failures are logged and leave
// ErrorPlaceholder in the affected fields; a record is always returned.
func (e *Extractor) Extract(path string, row int, scan bool) Record {
	name := filepath.Base(path)
	rec := Record{
		Row:            row,
		Path:           path,
		Filename:       name,
		Extension:      strings.TrimPrefix(filepath.Ext(name), "."),
		DirectoryLabel: filepath.Base(filepath.Dir(path)) + "/" + name,
		Digests:        make(map[digest.Algorithm]string),
	}
	degraded := false

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Couldn't stat %s: %v", path, err)
		rec.SizeUnknown = true
		degraded = true
	} else {
		rec.Size = uint64(info.Size())
	}

	if err := e.sniff(path, info, &rec); err != nil {
		logging.Warn("Type detection failed for %s: %v", path, err)
		degraded = true
	}

	if scan {
		rec.ScanMatches = e.scan(path)
		if len(rec.ScanMatches) == 1 && rec.ScanMatches[0] == ErrorPlaceholder {
			degraded = true
		}
	}

	if degraded {
		metrics.RecordsExtractedTotal.WithLabelValues("degraded").Inc()
	} else {
		metrics.RecordsExtractedTotal.WithLabelValues("success").Inc()
	}
	return rec
}

func (e *Extractor) sniff(path string, info os.FileInfo, rec *Record) error {
	if e.detector == nil {
		rec.MIMEType = ErrorPlaceholder
		rec.TypeDescriptor = ErrorPlaceholder
		return errors.New("no type detector configured")
	}

	target := path
	if info != nil && e.largeFileLimit > 0 && info.Size() > e.largeFileLimit {
		tmp, err := e.truncatedCopy(path)
		if err != nil {
			rec.MIMEType = ErrorPlaceholder
			rec.TypeDescriptor = ErrorPlaceholder
			return err
		}
		defer os.Remove(tmp)
		logging.Debug("Sniffing first %d bytes of %s (%d bytes)", SniffSize, path, info.Size())
		target = tmp
	}

	var firstErr error
	mime, err := e.detector.MIME(target)
	if err != nil {
		mime = ErrorPlaceholder
		firstErr = err
	}
	desc, err := e.detector.Describe(target)
	if err != nil {
		desc = ErrorPlaceholder
		if firstErr == nil {
			firstErr = err
		}
	}
	rec.MIMEType = mime
	rec.TypeDescriptor = desc
	return firstErr
}

// truncatedCopy writes the first SniffSize bytes of path to a temporary
// file and returns its name. The caller removes it.
func (e *Extractor) truncatedCopy(path string) (string, error) {
	src, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("couldn't open file %s: %w", path, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(e.tempDir, "hashdrop-sniff-*"+filepath.Ext(path))
	if err != nil {
		return "", fmt.Errorf("failed to create sniff copy: %w", err)
	}

	if _, err := io.CopyN(dst, src, SniffSize); err != nil && !errors.Is(err, io.EOF) {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to copy head of %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to close sniff copy: %w", err)
	}
	return dst.Name(), nil
}

func (e *Extractor) scan(path string) []string {
	if e.scanner == nil {
		return []string{}
	}

	matches, err := e.scanner.Scan(path)
	switch {
	case errors.Is(err, rules.ErrNotCompiled):
		return []string{}
	case err != nil:
		logging.Warn("%v", err)
		return []string{ErrorPlaceholder}
	case matches == nil:
		return []string{}
	}
	return matches
}

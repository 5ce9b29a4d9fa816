package rules

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"hashdrop/internal/filesystem"
	"hashdrop/internal/logging"
	"hashdrop/internal/metrics"
)

// ErrNotCompiled is returned by Scan when no rule set is loaded.
var ErrNotCompiled = errors.New("no rule set compiled")

// DefaultMaxScanSize caps how much of each file is matched against rules.
const DefaultMaxScanSize = 64 << 20

// Extensions lists the file suffixes treated as rule sources in a rules
// directory.
var Extensions = []string{".rules", ".ini"}

// Scanner matches files against a compiled rule set. Scan may be called
// from any goroutine, also while Compile replaces the set.
type Scanner struct {
	set         atomic.Pointer[ruleSet]
	maxScanSize int64
}

// NewScanner returns a scanner with no rules loaded.
func NewScanner() *Scanner {
	return &Scanner{maxScanSize: DefaultMaxScanSize}
}

// SetMaxScanSize changes how many leading bytes of each file are scanned.
func (s *Scanner) SetMaxScanSize(n int64) {
	if n > 0 {
		s.maxScanSize = n
	}
}

// Compile parses sources and atomically replaces the active rule set with
// whatever compiled. Sources that fail are reported in the returned
// diagnostics and left out.
func (s *Scanner) Compile(sources []string) Diagnostics {
	set, diags := compileSources(sources)
	s.set.Store(set)

	metrics.RulesLoaded.Set(float64(len(set.rules)))
	for _, d := range diags {
		metrics.RuleDiagnosticsTotal.WithLabelValues(string(d.Level)).Inc()
		switch d.Level {
		case LevelError:
			logging.Error("%s", d)
		case LevelWarning:
			logging.Warn("%s", d)
		default:
			logging.Info("%s", d)
		}
	}
	return diags
}

// Disable drops the active rule set.
func (s *Scanner) Disable() {
	s.set.Store(nil)
	metrics.RulesLoaded.Set(0)
}

// Loaded reports whether a rule set is active.
func (s *Scanner) Loaded() bool {
	return s.set.Load() != nil
}

// Rules returns the identifiers of the active rules in match order.
func (s *Scanner) Rules() []string {
	set := s.set.Load()
	if set == nil {
		return nil
	}
	ids := make([]string, len(set.rules))
	for i, r := range set.rules {
		ids[i] = r.ID
	}
	return ids
}

// Scan returns the identifiers of the rules that match the file, in rule
// order. It returns ErrNotCompiled when no rule set is loaded.
func (s *Scanner) Scan(path string) ([]string, error) {
	set := s.set.Load()
	if set == nil {
		return nil, ErrNotCompiled
	}
	if len(set.rules) == 0 {
		return []string{}, nil
	}

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		metrics.ScanErrorsTotal.Inc()
		return nil, fmt.Errorf("error scanning file %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxScanSize))
	if err != nil {
		metrics.ScanErrorsTotal.Inc()
		return nil, fmt.Errorf("error scanning file %s: %w", path, err)
	}

	matches := []string{}
	for _, r := range set.rules {
		if r.matches(data) {
			matches = append(matches, r.ID)
			metrics.ScanMatchesTotal.WithLabelValues(r.ID).Inc()
		}
	}
	return matches, nil
}

// Reload compiles every rule source found in dir, creating dir if it does
// not exist. If dir cannot be created or read the scanner is disabled and a
// single error diagnostic is returned.
func (s *Scanner) Reload(dir string) Diagnostics {
	sources, err := Sources(dir)
	if err != nil {
		s.Disable()
		d := Diagnostic{Level: LevelError, Source: dir, Message: fmt.Sprintf("unable to open rules: %v", err)}
		metrics.RuleDiagnosticsTotal.WithLabelValues(string(LevelError)).Inc()
		logging.Error("%s", d)
		return Diagnostics{d}
	}
	if len(sources) == 0 {
		logging.Info("No rule sources in %s", dir)
	}
	return s.Compile(sources)
}

// Sources lists rule sources in dir in lexical order, creating the
// directory when missing.
func Sources(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create rules directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	var sources []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range Extensions {
			if ext == want {
				sources = append(sources, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(sources)
	return sources, nil
}

// JoinMatches renders scan matches for display.
func JoinMatches(ids []string) string {
	return strings.Join(ids, " | ")
}

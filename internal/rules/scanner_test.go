package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	return path
}

const basicRules = `
[Windows_PE]
hex = 4d 5a
text = This program cannot be run in DOS mode
condition = all

[Greeting]
text = hello
text = bonjour

[Eval_Call]
regex = (?i)eval\s*\(
`

func TestScannerNotCompiled(t *testing.T) {
	t.Parallel()

	s := NewScanner()
	if s.Loaded() {
		t.Error("new scanner should not be loaded")
	}

	matches, err := s.Scan("/does/not/matter")
	if !errors.Is(err, ErrNotCompiled) {
		t.Errorf("Scan() error = %v, want ErrNotCompiled", err)
	}
	if matches != nil {
		t.Errorf("Scan() = %v, want nil", matches)
	}
}

func TestScannerMatchesInRuleOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeSource(t, dir, "basic.rules", basicRules)

	s := NewScanner()
	diags := s.Compile([]string{src})
	if diags.HasErrors() {
		t.Fatalf("Compile() diagnostics = %v", diags)
	}
	if got := diags.Count(LevelSuccess); got != 1 {
		t.Errorf("success diagnostics = %d, want 1", got)
	}
	if got := s.Rules(); len(got) != 3 || got[0] != "Windows_PE" || got[2] != "Eval_Call" {
		t.Errorf("Rules() = %v", got)
	}

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"pe and eval", "MZ\x90\x00This program cannot be run in DOS mode; EVAL (x)", []string{"Windows_PE", "Eval_Call"}},
		{"pe marker only", "MZ but nothing else", []string{}},
		{"second text alternative", "well bonjour there", []string{"Greeting"}},
		{"no match", "plain", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".bin", tt.content)
			got, err := s.Scan(path)
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Scan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileReportsBadSourcesAndKeepsGoodOnes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeSource(t, dir, "a.rules", "[Good]\ntext = needle\n")
	badRegex := writeSource(t, dir, "b.rules", "[BadRegex]\nregex = (unclosed\n\n[Fine]\ntext = hay\n")
	missing := filepath.Join(dir, "missing.rules")
	dupe := writeSource(t, dir, "c.rules", "[Good]\ntext = other\nweight = 3\n")

	s := NewScanner()
	diags := s.Compile([]string{good, badRegex, missing, dupe})

	if got := diags.Count(LevelError); got != 2 {
		t.Errorf("error diagnostics = %d, want 2 (bad regex, missing file): %v", got, diags)
	}
	if got := diags.Count(LevelWarning); got != 1 {
		t.Errorf("warning diagnostics = %d, want 1 (duplicate identifier): %v", got, diags)
	}
	if got := s.Rules(); strings.Join(got, ",") != "Good,Fine" {
		t.Errorf("Rules() = %v, want [Good Fine]", got)
	}

	for _, d := range diags {
		if d.Source == "" {
			t.Errorf("diagnostic %v has no source", d)
		}
	}
}

func TestCompileWarnsOnUnknownKey(t *testing.T) {
	t.Parallel()

	src := writeSource(t, t.TempDir(), "k.rules", "[R]\ntext = x\ncolour = red\n")

	diags := NewScanner().Compile([]string{src})
	if diags.Count(LevelWarning) != 1 || diags.HasErrors() {
		t.Errorf("diagnostics = %v, want one warning", diags)
	}
}

func TestCompileRejectsRuleWithoutPatterns(t *testing.T) {
	t.Parallel()

	src := writeSource(t, t.TempDir(), "e.rules", "[Empty]\ncondition = all\n")

	s := NewScanner()
	diags := s.Compile([]string{src})
	if !diags.HasErrors() {
		t.Errorf("diagnostics = %v, want an error for a rule with no patterns", diags)
	}
	if len(s.Rules()) != 0 {
		t.Errorf("Rules() = %v, want none", s.Rules())
	}
}

func TestReloadCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "rules")

	s := NewScanner()
	diags := s.Reload(dir)
	if diags.HasErrors() {
		t.Fatalf("Reload() diagnostics = %v", diags)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("rules directory not created: %v", err)
	}
	if !s.Loaded() {
		t.Error("scanner should be loaded with an empty set")
	}

	matches, err := s.Scan(filepath.Join(dir, "anything"))
	if err != nil || len(matches) != 0 {
		t.Errorf("Scan() with empty set = (%v, %v), want ([], nil)", matches, err)
	}
}

func TestReloadFatalDisablesScanner(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	blocker := writeSource(t, base, "file", "not a directory")

	s := NewScanner()
	s.Compile(nil)

	diags := s.Reload(filepath.Join(blocker, "rules"))
	if len(diags) != 1 || diags[0].Level != LevelError {
		t.Fatalf("Reload() diagnostics = %v, want a single error", diags)
	}
	if s.Loaded() {
		t.Error("scanner should be disabled after a fatal reload")
	}
}

func TestSourcesLexicalOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSource(t, dir, "b.rules", "")
	writeSource(t, dir, "a.ini", "")
	writeSource(t, dir, "readme.txt", "")

	got, err := Sources(dir)
	if err != nil {
		t.Fatalf("Sources() error = %v", err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "a.ini" || filepath.Base(got[1]) != "b.rules" {
		t.Errorf("Sources() = %v", got)
	}
}

func TestScanWhileRecompiling(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeSource(t, dir, "r.rules", "[Needle]\ntext = needle\n")
	target := writeSource(t, dir, "target", "a needle in a haystack")

	s := NewScanner()
	s.Compile([]string{src})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				got, err := s.Scan(target)
				if err != nil || len(got) != 1 {
					t.Errorf("Scan() = (%v, %v)", got, err)
					return
				}
			}
		}()
	}
	for j := 0; j < 10; j++ {
		s.Compile([]string{src})
	}
	wg.Wait()
}

func TestMaxScanSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeSource(t, dir, "r.rules", "[Tail]\ntext = TAIL\n")
	target := writeSource(t, dir, "target", strings.Repeat("x", 100)+"TAIL")

	s := NewScanner()
	s.SetMaxScanSize(50)
	s.Compile([]string{src})

	got, err := s.Scan(target)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Scan() = %v, want no match beyond the scan limit", got)
	}
}

func TestDiagnosticString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    Diagnostic
		want string
	}{
		{Diagnostic{LevelError, "a.rules", "bad"}, "[ ! ] a.rules: bad"},
		{Diagnostic{LevelWarning, "a.rules", "meh"}, "[ * ] a.rules: meh"},
		{Diagnostic{LevelSuccess, "a.rules", "compiled 2 rules"}, "[ + ] a.rules: compiled 2 rules"},
		{Diagnostic{LevelSuccess, "", "ok"}, "[ + ] ok"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestJoinMatches(t *testing.T) {
	t.Parallel()

	if got := JoinMatches([]string{"A", "B"}); got != "A | B" {
		t.Errorf("JoinMatches() = %q", got)
	}
	if got := JoinMatches(nil); got != "" {
		t.Errorf("JoinMatches(nil) = %q", got)
	}
}

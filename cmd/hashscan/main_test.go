package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hashdrop/internal/digest"
	"hashdrop/internal/pipeline"
	"hashdrop/internal/signature"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut, false)
	return code, out.String(), errOut.String()
}

func TestUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no paths", nil, exitUsage},
		{"unknown flag", []string{"-nope", "x"}, exitUsage},
		{"help", []string{"-h"}, exitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, tt.args...); code != tt.want {
				t.Errorf("exit = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestAlgorithms(t *testing.T) {
	t.Setenv("DEFAULT_ALGORITHMS", "")

	opts := &options{}
	algs, err := opts.algorithms()
	if err != nil || len(algs) != 1 || algs[0] != digest.SHA256 {
		t.Errorf("default = %v, %v", algs, err)
	}

	opts = &options{md5: true, sha1: true}
	algs, _ = opts.algorithms()
	if len(algs) != 2 || algs[0] != digest.MD5 || algs[1] != digest.SHA1 {
		t.Errorf("flags = %v", algs)
	}

	t.Setenv("DEFAULT_ALGORITHMS", "md5,sha-256")
	algs, _ = (&options{}).algorithms()
	if len(algs) != 2 || algs[1] != digest.SHA256 {
		t.Errorf("env = %v", algs)
	}

	t.Setenv("DEFAULT_ALGORITHMS", "crc32")
	if _, err := (&options{}).algorithms(); err == nil {
		t.Error("unknown env algorithm should fail")
	}
}

func TestSniffLimit(t *testing.T) {
	tests := []struct {
		env  string
		want int64
	}{
		{"", signature.LargeFileLimit()},
		{"4096", 4096},
		{"0", 0},
		{"lots", signature.LargeFileLimit()},
		{"-1", signature.LargeFileLimit()},
	}
	for _, tt := range tests {
		t.Setenv("SNIFF_LARGE_FILE_LIMIT", tt.env)
		if got := sniffLimit(); got != tt.want {
			t.Errorf("sniffLimit() with %q = %d, want %d", tt.env, got, tt.want)
		}
	}
}

func TestDuplicateGroups(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "hello", "b.txt": "hello", "c.txt": "other"})

	code, stdout, stderr := runCLI(t, "-sha256", dir)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr %s", code, stderr)
	}

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("output = %q", stdout)
	}
	if !strings.HasPrefix(lines[0], "group 1") || !strings.Contains(lines[0], helloSHA256) {
		t.Errorf("group line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "a.txt") || !strings.HasSuffix(lines[2], "b.txt") {
		t.Errorf("members = %q", lines[1:])
	}
	if !strings.Contains(stderr, "3 files hashed in") {
		t.Errorf("summary missing from %q", stderr)
	}
}

func TestTSVOutput(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "hello", "b.txt": "hello"})

	code, stdout, _ := runCLI(t, "-md5", "-sha256", "-hide-dups", "-tsv", "-", dir)
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("hide-dups should leave one row: %q", lines)
	}
	if !strings.HasPrefix(lines[0], "Filename\tMD5\tSHA-256\t") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], helloSHA256) {
		t.Errorf("row = %q", lines[1])
	}
}

func TestTSVFileAndSearch(t *testing.T) {
	dir := writeFiles(t, map[string]string{"keep.log": "1", "drop.txt": "2"})
	dest := filepath.Join(t.TempDir(), "out.tsv")

	code, _, stderr := runCLI(t, "-search", "*.log", "-tsv", dest, dir)
	if code != exitOK {
		t.Fatalf("exit = %d, %s", code, stderr)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "keep.log") || strings.Contains(string(data), "drop.txt") {
		t.Errorf("tsv = %q", data)
	}

	if code, _, _ := runCLI(t, "-search", "(", "-mode", "regex", dir); code != exitError {
		t.Errorf("invalid regex exit = %d, want %d", code, exitError)
	}
}

func TestZipOutput(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "hello", "b.txt": "world"})
	dest := filepath.Join(t.TempDir(), "out.zip")

	code, stdout, stderr := runCLI(t, "-zip", dest, dir)
	if code != exitOK {
		t.Fatalf("exit = %d, %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty with -zip, got %q", stdout)
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Errorf("entries = %d, want 2", len(zr.File))
	}
}

func TestScanWithUnusableRulesDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "hello"})

	// a path below a regular file can never be created
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI(t, "-scan", "-rules", filepath.Join(blocker, "rules"), "-tsv", "-", dir)
	if code != exitOK {
		t.Fatalf("exit = %d, %s", code, stderr)
	}
	if !strings.Contains(stderr, "[ ! ]") {
		t.Errorf("missing rule directory should be reported, stderr %q", stderr)
	}
}

func TestProgressLine(t *testing.T) {
	var buf bytes.Buffer
	p := &progressLine{w: &buf, perFile: 2}

	p.Observe(pipeline.Event{Type: pipeline.EventBatchSize, Count: 2})
	p.Observe(pipeline.Event{Type: pipeline.EventProgress, Progress: 1})
	p.Observe(pipeline.Event{Type: pipeline.EventProgress, Progress: 4})
	p.finish()

	out := buf.String()
	if !strings.Contains(out, "\r1/4 (25%)") || !strings.Contains(out, "\r4/4 (100%)") {
		t.Errorf("progress output = %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("finish should clear the line, got %q", out)
	}
}

func TestProgressText(t *testing.T) {
	tests := []struct {
		progress, expected int
		want               string
	}{
		{3, 0, "3"},
		{0, 10, "0/10 (0%)"},
		{5, 10, "5/10 (50%)"},
	}
	for _, tt := range tests {
		if got := progressText(tt.progress, tt.expected); got != tt.want {
			t.Errorf("progressText(%d, %d) = %q, want %q", tt.progress, tt.expected, got, tt.want)
		}
	}
}

package archive

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

type recordingProgress struct {
	counts    []int
	completed int
	dest      string
}

func (p *recordingProgress) FileArchived(_ string, count, _ int) {
	p.counts = append(p.counts, count)
}

func (p *recordingProgress) Completed(dest string, count int) {
	p.completed++
	p.dest = dest
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestZipArchive(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "one", "same.txt")
	b := filepath.Join(dir, "two", "same.txt")
	c := filepath.Join(dir, "other.bin")
	writeFile(t, a, "first")
	writeFile(t, b, "second")
	writeFile(t, c, "third")

	dest := filepath.Join(dir, "out.zip")
	p := &recordingProgress{}
	if err := NewZip().Archive(context.Background(), []string{a, b, c}, dest, p); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if len(p.counts) != 3 || p.counts[0] != 1 || p.counts[2] != 3 {
		t.Errorf("progress counts = %v", p.counts)
	}
	if p.completed != 1 || p.dest != dest {
		t.Errorf("completed = %d (%s)", p.completed, p.dest)
	}

	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := map[string]string{}
	var names []string
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		got[f.Name] = string(data)
		names = append(names, f.Name)
	}
	sort.Strings(names)

	want := map[string]string{"same.txt": "first", "same-2.txt": "second", "other.bin": "third"}
	for name, content := range want {
		if got[name] != content {
			t.Errorf("entry %s = %q, want %q (entries %v)", name, got[name], content, names)
		}
	}
}

func TestZipArchive_NoFiles(t *testing.T) {
	t.Parallel()
	err := NewZip().Archive(context.Background(), nil, filepath.Join(t.TempDir(), "x.zip"), nil)
	if !errors.Is(err, ErrNoFiles) {
		t.Errorf("Archive(nil) = %v, want ErrNoFiles", err)
	}
}

func TestZipArchive_FailureAborts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	c := filepath.Join(dir, "c")
	writeFile(t, a, "a")
	writeFile(t, c, "c")

	dest := filepath.Join(dir, "out.zip")
	var counts []int
	progress := ProgressFunc(func(_ string, count, _ int) { counts = append(counts, count) })

	err := NewZip().Archive(context.Background(), []string{a, filepath.Join(dir, "missing"), c}, dest, progress)
	if err == nil {
		t.Fatal("expected an error for the missing file")
	}
	if len(counts) != 1 {
		t.Errorf("progress after failure = %v, want only the first file", counts)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("partial archive left behind: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestZipArchive_Cancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	writeFile(t, a, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewZip().Archive(ctx, []string{a}, filepath.Join(dir, "out.zip"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Archive = %v, want context.Canceled", err)
	}
}

func TestEntryName(t *testing.T) {
	t.Parallel()
	used := map[string]int{}
	tests := []struct {
		path string
		want string
	}{
		{"/x/report.pdf", "report.pdf"},
		{"/y/report.pdf", "report-2.pdf"},
		{"/z/report-2.pdf", "report-2-2.pdf"},
		{"/w/report.pdf", "report-3.pdf"},
		{"/v/README", "README"},
		{"/u/README", "README-2"},
	}
	for _, tt := range tests {
		if got := entryName(used, tt.path); got != tt.want {
			t.Errorf("entryName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

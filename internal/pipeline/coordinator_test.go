package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hashdrop/internal/digest"
	"hashdrop/internal/expand"
	"hashdrop/internal/metadata"
	"hashdrop/internal/signature"
	"hashdrop/internal/table"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *recorder) {
	t.Helper()
	config := DefaultConfig()
	config.Digest.Workers = 2
	config.RulesDir = t.TempDir()

	c := New(config, metadata.NewExtractor(signature.NewMagic(), nil, 0), nil)
	t.Cleanup(c.Close)

	rec := &recorder{}
	c.Subscribe(rec)
	return c, rec
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runBatch(t *testing.T, c *Coordinator, req Request) Summary {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := c.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return s
}

func TestCoordinator_IdenticalFiles(t *testing.T) {
	t.Parallel()
	c, rec := newTestCoordinator(t)

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")
	writeFile(t, dir, "b.txt", "hello")

	s := runBatch(t, c, Request{Paths: []string{dir}, Algorithms: []digest.Algorithm{digest.SHA256}})

	if s.Files != 2 || s.Digests != 2 || s.Errors != 0 || s.Groups != 1 {
		t.Errorf("summary = %+v", s)
	}
	if !strings.HasPrefix(s.String(), "2 files hashed in ") {
		t.Errorf("String() = %q", s.String())
	}

	sizes := rec.ofType(EventBatchSize)
	if len(sizes) != 1 || sizes[0].Count != 2 {
		t.Fatalf("batch_size events = %+v", sizes)
	}

	ready := rec.ofType(EventRecordReady)
	if len(ready) != 2 {
		t.Fatalf("got %d record_ready events, want 2", len(ready))
	}
	if ready[0].Record.Filename != "a.txt" || ready[1].Record.Filename != "b.txt" {
		t.Errorf("records out of discovery order: %s, %s", ready[0].Record.Filename, ready[1].Record.Filename)
	}

	results := rec.ofType(EventDigestResult)
	if len(results) != 2 {
		t.Fatalf("got %d digest_result events, want 2", len(results))
	}
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	for _, r := range results {
		if r.Value != want {
			t.Errorf("digest of %s = %q, want %q", r.Path, r.Value, want)
		}
	}

	ctx := context.Background()
	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Groups) != 1 || len(snap.Groups[0].Paths) != 2 {
		t.Fatalf("groups = %+v", snap.Groups)
	}
	if !snap.Stats.FilterAvailable {
		t.Error("filter should be available with a duplicate group")
	}

	if err := c.SetHideDuplicates(ctx, true); err != nil {
		t.Fatal(err)
	}
	snap, _ = c.Snapshot(ctx)
	if len(snap.Rows) != 1 || snap.Rows[0].Filename != "a.txt" {
		t.Fatalf("visible rows with hiding = %+v", snap.Rows)
	}
	if got := snap.Stats.String(); got != "1 (1 filtered)" {
		t.Errorf("stats = %q", got)
	}
}

func TestCoordinator_EventOrder(t *testing.T) {
	t.Parallel()
	c, rec := newTestCoordinator(t)

	dir := t.TempDir()
	for _, name := range []string{"1", "2", "3"} {
		writeFile(t, dir, name, name)
	}

	runBatch(t, c, Request{Paths: []string{dir}, Algorithms: []digest.Algorithm{digest.MD5, digest.SHA1}})

	events := rec.all()
	if events[0].Type != EventBatchStarted {
		t.Errorf("first event = %s", events[0].Type)
	}
	if events[1].Type != EventBatchSize {
		t.Errorf("second event = %s", events[1].Type)
	}
	if last := events[len(events)-1]; last.Type != EventBatchFinished || last.Summary == nil {
		t.Errorf("last event = %+v", last)
	}
	if prev := events[len(events)-2]; prev.Type != EventBatchDigestComplete {
		t.Errorf("event before finish = %s", prev.Type)
	}

	lastReady, firstDigest := -1, -1
	for i, e := range events {
		switch e.Type {
		case EventRecordReady:
			lastReady = i
		case EventDigestResult:
			if firstDigest < 0 {
				firstDigest = i
			}
		}
	}
	if firstDigest < lastReady {
		t.Errorf("digest result at %d before last record at %d", firstDigest, lastReady)
	}

	progress := rec.ofType(EventProgress)
	if len(progress) != 3+3*2 {
		t.Fatalf("got %d progress events, want 9", len(progress))
	}
	for i, e := range progress {
		if e.Progress != i+1 {
			t.Fatalf("progress[%d] = %d, want %d", i, e.Progress, i+1)
		}
	}
}

// deniedDetector fails for one path the way a permission error would and
// classifies everything else as plain text.
type deniedDetector struct{ denied string }

func (d deniedDetector) MIME(path string) (string, error) {
	if path == d.denied {
		return "", &os.PathError{Op: "open", Path: path, Err: os.ErrPermission}
	}
	return "text/plain; charset=utf-8", nil
}

func (d deniedDetector) Describe(path string) (string, error) {
	if path == d.denied {
		return "", &os.PathError{Op: "open", Path: path, Err: os.ErrPermission}
	}
	return "ASCII text", nil
}

func TestCoordinator_UnreadableFile(t *testing.T) {
	t.Parallel()
	c, rec := newTestCoordinator(t)

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")
	locked := writeFile(t, dir, "b.bin", "secret")

	c.extractor = metadata.NewExtractor(deniedDetector{denied: locked}, nil, 0)
	c.engine = digest.NewEngine(digest.Config{Workers: 2})
	c.engine.SetHashFunc(func(path string, alg digest.Algorithm) (string, error) {
		if path == locked {
			return "", &os.PathError{Op: "open", Path: path, Err: os.ErrPermission}
		}
		return digest.File(path, alg)
	})

	s := runBatch(t, c, Request{Paths: []string{dir}, Algorithms: []digest.Algorithm{digest.MD5, digest.SHA256}})
	if s.Files != 2 || s.Digests != 4 || s.Errors != 2 {
		t.Errorf("summary = %+v, want 2 files, 4 digests, 2 errors", s)
	}

	ready := rec.ofType(EventRecordReady)
	if len(ready) != 2 {
		t.Fatalf("got %d records, want 2", len(ready))
	}
	byName := map[string]metadata.Record{}
	for _, e := range ready {
		byName[e.Record.Filename] = *e.Record
	}
	if got := byName["b.bin"].MIMEType; got != metadata.ErrorPlaceholder {
		t.Errorf("unreadable MIME = %q, want placeholder", got)
	}
	if got := byName["a.txt"].MIMEType; got != "text/plain; charset=utf-8" {
		t.Errorf("readable MIME = %q", got)
	}

	const helloMD5 = "5d41402abc4b2a76b9719d911017c592"
	const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	results := rec.ofType(EventDigestResult)
	if len(results) != 4 {
		t.Fatalf("got %d digest results, want 4", len(results))
	}
	for _, r := range results {
		switch {
		case r.Path == locked:
			if !digest.IsErrorValue(r.Value) {
				t.Errorf("%s of unreadable file = %q, want error value", r.Algorithm, r.Value)
			}
		case r.Algorithm == digest.MD5 && r.Value != helloMD5,
			r.Algorithm == digest.SHA256 && r.Value != helloSHA256:
			t.Errorf("%s of %s = %q", r.Algorithm, r.Path, r.Value)
		}
	}

	if len(rec.ofType(EventBatchDigestComplete)) != 1 {
		t.Error("batch_digest_complete should still fire")
	}

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Groups) != 0 {
		t.Errorf("error values must not group: %+v", snap.Groups)
	}
}

func TestCoordinator_UnknownPaths(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")
	runBatch(t, c, Request{Paths: []string{a}})

	unknown, err := c.UnknownPaths(context.Background(), []string{a, "/etc/hostname"})
	if err != nil {
		t.Fatal(err)
	}
	if len(unknown) != 1 || unknown[0] != "/etc/hostname" {
		t.Errorf("UnknownPaths = %v, want only /etc/hostname", unknown)
	}
}

func TestCoordinator_VanishedFile(t *testing.T) {
	t.Parallel()
	c, rec := newTestCoordinator(t)

	dir := t.TempDir()
	keep := writeFile(t, dir, "keep.txt", "keep")
	missing := filepath.Join(dir, "missing.txt")

	s := runBatch(t, c, Request{Paths: []string{keep, missing}, Algorithms: []digest.Algorithm{digest.SHA1}})
	if s.Files != 1 || s.Errors != 0 {
		t.Errorf("summary = %+v", s)
	}
	if got := rec.ofType(EventBatchSize); got[0].Count != 1 {
		t.Errorf("size = %d, want 1", got[0].Count)
	}
}

func TestCoordinator_NoAlgorithms(t *testing.T) {
	t.Parallel()
	c, rec := newTestCoordinator(t)

	dir := t.TempDir()
	writeFile(t, dir, "a", "same")
	writeFile(t, dir, "b", "same")

	s := runBatch(t, c, Request{Paths: []string{dir}})
	if s.Files != 2 || s.Digests != 0 || s.Groups != 0 {
		t.Errorf("summary = %+v", s)
	}
	if len(rec.ofType(EventDigestResult)) != 0 {
		t.Error("no digests expected without algorithms")
	}

	snap, _ := c.Snapshot(context.Background())
	if snap.Stats.FilterAvailable {
		t.Error("filter should be unavailable without an identity column")
	}
}

func TestCoordinator_StartErrors(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.Start(ctx, Request{}); !errors.Is(err, expand.ErrNoInputs) {
		t.Errorf("Start(empty) = %v, want ErrNoInputs", err)
	}
	if err := c.Cancel(ctx); !errors.Is(err, ErrNoBatch) {
		t.Errorf("Cancel(idle) = %v, want ErrNoBatch", err)
	}

	// Block the first batch in the digest stage.
	release := make(chan struct{})
	c.engine = digest.NewEngine(digest.Config{Workers: 1, ChannelBuffer: 1})
	blockEngine(c.engine, release)

	dir := t.TempDir()
	writeFile(t, dir, "a", "a")

	h, err := c.Start(ctx, Request{Paths: []string{dir}, Algorithms: []digest.Algorithm{digest.MD5}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Start(ctx, Request{Paths: []string{dir}}); !errors.Is(err, ErrBatchRunning) {
		t.Errorf("second Start = %v, want ErrBatchRunning", err)
	}

	close(release)
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := h.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}
}

func TestCoordinator_Cancel(t *testing.T) {
	t.Parallel()
	c, rec := newTestCoordinator(t)
	ctx := context.Background()

	release := make(chan struct{})
	c.engine = digest.NewEngine(digest.Config{Workers: 1, ChannelBuffer: 1})
	started := blockEngine(c.engine, release)

	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeFile(t, dir, name, name)
	}

	h, err := c.Start(ctx, Request{Paths: []string{dir}, Algorithms: []digest.Algorithm{digest.SHA256}})
	if err != nil {
		t.Fatal(err)
	}

	<-started
	if err := c.Cancel(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s, err := h.Wait(waitCtx)
	if err != nil {
		t.Fatal(err)
	}

	if !s.Cancelled {
		t.Error("summary should be marked cancelled")
	}
	if s.Files != 4 {
		t.Errorf("files = %d, want 4: extraction is not cancelled", s.Files)
	}
	if s.Digests < 1 || s.Digests+s.Skipped != 4 {
		t.Errorf("digests = %d, skipped = %d", s.Digests, s.Skipped)
	}
	if got := len(rec.ofType(EventDigestResult)); got != s.Digests {
		t.Errorf("digest events = %d, summary digests = %d", got, s.Digests)
	}
	if len(rec.ofType(EventBatchDigestComplete)) != 1 {
		t.Error("batch_digest_complete should fire after cancellation")
	}
}

func TestCoordinator_RemoveAndSearch(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	dir := t.TempDir()
	a := writeFile(t, dir, "alpha.txt", "x")
	writeFile(t, dir, "beta.txt", "x")
	writeFile(t, dir, "gamma.log", "y")

	runBatch(t, c, Request{Paths: []string{dir}, Algorithms: []digest.Algorithm{digest.MD5}})

	if err := c.SetSearch(ctx, table.Search{Pattern: "*.txt", Mode: table.SearchWildcard}); err != nil {
		t.Fatal(err)
	}
	paths, err := c.VisiblePaths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Errorf("visible = %v, want the two .txt files", paths)
	}

	if err := c.SetSearch(ctx, table.Search{Pattern: "(", Mode: table.SearchRegex}); err == nil {
		t.Error("invalid regex should be rejected")
	}

	n, err := c.Remove(ctx, []string{a, filepath.Join(dir, "nope")})
	if err != nil || n != 1 {
		t.Fatalf("Remove = %d, %v", n, err)
	}
	snap, _ := c.Snapshot(ctx)
	if len(snap.Groups) != 0 {
		t.Errorf("singleton group should dissolve, got %+v", snap.Groups)
	}

	tsv, err := c.ExportTSV(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(tsv), "beta.txt") || strings.Contains(string(tsv), "alpha.txt") {
		t.Errorf("export = %q", tsv)
	}
}

func TestCoordinator_Unsubscribe(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)

	var count int
	var mu sync.Mutex
	unsubscribe := c.Subscribe(ObserverFunc(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}))
	if c.Subscribers() != 2 {
		t.Fatalf("subscribers = %d, want 2", c.Subscribers())
	}
	unsubscribe()
	unsubscribe()
	if c.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", c.Subscribers())
	}

	dir := t.TempDir()
	writeFile(t, dir, "a", "a")
	runBatch(t, c, Request{Paths: []string{dir}})

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("unsubscribed observer got %d events", count)
	}
}

func TestCoordinator_ReloadRulesWithoutScanner(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	if _, err := c.ReloadRules(context.Background()); !errors.Is(err, ErrNoScanner) {
		t.Errorf("ReloadRules = %v, want ErrNoScanner", err)
	}
}

func TestCoordinator_GetStats(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)

	dir := t.TempDir()
	writeFile(t, dir, "a", "z")
	writeFile(t, dir, "b", "z")
	runBatch(t, c, Request{Paths: []string{dir}, Algorithms: []digest.Algorithm{digest.MD5}})

	s := c.GetStats()
	if s.Records != 2 || s.DuplicateGroups != 1 || s.DuplicateRecords != 2 || s.Subscribers != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestCoordinator_ClosedDo(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	c.Close()
	if err := c.Do(context.Background(), func(*table.Table) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Do after Close = %v, want ErrClosed", err)
	}
}

// blockEngine makes every digest wait for release. The returned channel is
// closed when the first job starts.
func blockEngine(e *digest.Engine, release <-chan struct{}) <-chan struct{} {
	started := make(chan struct{})
	var once sync.Once
	e.SetHashFunc(func(path string, alg digest.Algorithm) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return digest.File(path, alg)
	})
	return started
}

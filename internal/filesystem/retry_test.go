package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestStatWithRetry_Success(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(testFile, fastRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v, want nil", err)
	}
	if info.Size() != 4 {
		t.Errorf("FileInfo.Size() = %d, want 4", info.Size())
	}
}

func TestOpenWithRetry_NotExistIsNotRetried(t *testing.T) {
	rec := &recordingObserver{}
	SetObserver(rec)
	defer SetObserver(nil)

	_, err := OpenWithRetry(filepath.Join(t.TempDir(), "missing"), fastRetryConfig())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("OpenWithRetry() error = %v, want ErrNotExist", err)
	}
	if rec.attempts != 0 {
		t.Errorf("retry attempts = %d, want 0 for a non-stale error", rec.attempts)
	}
}

func TestWithRetry_StaleThenSuccess(t *testing.T) {
	rec := &recordingObserver{}
	SetObserver(rec)
	defer SetObserver(nil)

	calls := 0
	got, err := withRetry("open", "/nfs/file", fastRetryConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("open: %w", syscall.ESTALE)
		}
		return "ok", nil
	})

	if err != nil || got != "ok" {
		t.Fatalf("withRetry() = (%q, %v), want (ok, nil)", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if rec.stale != 2 || rec.attempts != 2 || rec.success != 1 {
		t.Errorf("observer stale=%d attempts=%d success=%d, want 2/2/1", rec.stale, rec.attempts, rec.success)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	rec := &recordingObserver{}
	SetObserver(rec)
	defer SetObserver(nil)

	calls := 0
	_, err := withRetry("stat", "/nfs/file", fastRetryConfig(), func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want MaxRetries+1 = 4", calls)
	}
	if rec.failure != 1 {
		t.Errorf("failures = %d, want 1", rec.failure)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts int
	success  int
	failure  int
	stale    int
}

func (r *recordingObserver) ObserveRetryAttempt(string) {
	r.mu.Lock()
	r.attempts++
	r.mu.Unlock()
}

func (r *recordingObserver) ObserveRetrySuccess(string) {
	r.mu.Lock()
	r.success++
	r.mu.Unlock()
}

func (r *recordingObserver) ObserveRetryFailure(string) {
	r.mu.Lock()
	r.failure++
	r.mu.Unlock()
}

func (r *recordingObserver) ObserveRetryDuration(string, float64) {}

func (r *recordingObserver) ObserveStaleError(string) {
	r.mu.Lock()
	r.stale++
	r.mu.Unlock()
}

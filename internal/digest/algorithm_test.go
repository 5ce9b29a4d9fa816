package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	return path
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"md5", MD5, false},
		{"MD5", MD5, false},
		{"sha1", SHA1, false},
		{"SHA-1", SHA1, false},
		{"sha256", SHA256, false},
		{" Sha-256 ", SHA256, false},
		{"sha512", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAlgorithm(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownAlgorithm) {
				t.Errorf("error %v is not ErrUnknownAlgorithm", err)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	got, err := ParseList("sha256, md5,,SHA-256,sha1")
	if err != nil {
		t.Fatalf("ParseList() error = %v", err)
	}
	want := []Algorithm{SHA256, MD5, SHA1}
	if len(got) != len(want) {
		t.Fatalf("ParseList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := ParseList("md5,crc32"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("ParseList with crc32 error = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestAlgorithmLabel(t *testing.T) {
	t.Parallel()

	tests := map[Algorithm]string{MD5: "MD5", SHA1: "SHA-1", SHA256: "SHA-256", "crc": "CRC"}
	for alg, want := range tests {
		if got := alg.Label(); got != want {
			t.Errorf("%q.Label() = %q, want %q", alg, got, want)
		}
	}
}

func TestFileKnownVectors(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "abc.txt", []byte("abc"))

	tests := []struct {
		alg  Algorithm
		want string
	}{
		{MD5, "900150983cd24fb0d6963f7d28e17f72"},
		{SHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			t.Parallel()
			got, err := File(path, tt.alg)
			if err != nil {
				t.Fatalf("File() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("File(%s) = %s, want %s", tt.alg, got, tt.want)
			}
		})
	}
}

func TestFileSpansManyChunks(t *testing.T) {
	t.Parallel()

	data := make([]byte, ChunkSize*5+123)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := writeFile(t, t.TempDir(), "big.bin", data)

	sum := sha256.Sum256(data)
	want := hex.EncodeToString(sum[:])

	got, err := File(path, SHA256)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if got != want {
		t.Errorf("File() = %s, want %s", got, want)
	}
}

func TestFileIsDeterministic(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "same.txt", []byte("hash me twice"))

	for _, alg := range All() {
		first, err1 := File(path, alg)
		second, err2 := File(path, alg)
		if err1 != nil || err2 != nil {
			t.Fatalf("File(%s) errors: %v, %v", alg, err1, err2)
		}
		if first != second {
			t.Errorf("File(%s) not deterministic: %s != %s", alg, first, second)
		}
	}
}

func TestFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := File(filepath.Join(dir, "missing"), SHA256); err == nil {
		t.Error("File() on missing path should fail")
	}

	if _, err := File(dir, MD5); err == nil {
		t.Error("File() on a directory should fail")
	}

	path := writeFile(t, dir, "x", []byte("x"))
	if _, err := File(path, "crc32"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("File() with crc32 error = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestErrorValue(t *testing.T) {
	t.Parallel()

	v := ErrorValue(errors.New("couldn't open file /x"))
	if v != "error: couldn't open file /x" {
		t.Errorf("ErrorValue() = %q", v)
	}
	if !IsErrorValue(v) {
		t.Error("IsErrorValue() should be true for an error value")
	}
	if IsErrorValue("ba7816bf") {
		t.Error("IsErrorValue() should be false for hex")
	}
}

package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hashdrop/internal/filesystem"
	"hashdrop/internal/logging"
	"hashdrop/internal/metrics"
)

// ErrNoFiles is returned when there is nothing to archive.
var ErrNoFiles = errors.New("no files to archive")

// Progress receives archive progress. FileArchived is called after each
// file with the running count; Completed once the archive is closed.
type Progress interface {
	FileArchived(path string, count, total int)
	Completed(dest string, count int)
}

// ProgressFunc adapts a per-file callback to Progress.
type ProgressFunc func(path string, count, total int)

// FileArchived calls f.
func (f ProgressFunc) FileArchived(path string, count, total int) {
	f(path, count, total)
}

// Completed does nothing.
func (f ProgressFunc) Completed(string, int) {}

// Archiver packs files into a single archive at dest.
type Archiver interface {
	Archive(ctx context.Context, files []string, dest string, progress Progress) error
}

// Zip writes deflated zip archives. Entries are named after the file's
// base name; clashing names get a numeric suffix.
type Zip struct {
	// Method is the zip compression method (zip.Deflate by default)
	Method uint16
}

// NewZip returns a deflating zip archiver.
func NewZip() *Zip {
	return &Zip{Method: zip.Deflate}
}

// Archive writes files into dest. The archive is built next to dest and
// renamed into place, so a failed run leaves no partial file behind. The
// first file that cannot be added aborts the run.
func (z *Zip) Archive(ctx context.Context, files []string, dest string, progress Progress) (err error) {
	if len(files) == 0 {
		return ErrNoFiles
	}
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ArchiveRunsTotal.WithLabelValues(status).Inc()
	}()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := zip.NewWriter(tmp)
	names := make(map[string]int, len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			w.Close()
			return fmt.Errorf("archive interrupted: %w", err)
		}
		if err := z.add(w, path, entryName(names, path)); err != nil {
			w.Close()
			return err
		}
		metrics.ArchiveFilesTotal.Inc()
		if progress != nil {
			progress.FileArchived(path, i+1, len(files))
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	logging.Info("Archived %d files to %s in %v", len(files), dest, time.Since(start))
	if progress != nil {
		progress.Completed(dest, len(files))
	}
	return nil
}

func (z *Zip) add(w *zip.Writer, path, name string) error {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("couldn't open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("couldn't stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", path, err)
	}
	header.Name = name
	header.Method = z.Method

	out, err := w.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}
	if _, err := io.Copy(out, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// entryName returns the base name of path, suffixed with -2, -3, ... when
// an earlier entry already used it.
func entryName(used map[string]int, path string) string {
	base := filepath.Base(path)
	used[base]++
	n := used[base]
	if n == 1 {
		return base
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for {
		name := stem + "-" + strconv.Itoa(n) + ext
		if used[name] == 0 {
			used[name] = 1
			return name
		}
		n++
	}
}

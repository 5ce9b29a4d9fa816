//go:build !unix

package expand

import "path/filepath"

// fileID identifies a directory by its fully resolved path where device
// and inode numbers are not available.
type fileID struct {
	resolved string
}

func identify(path string) (fileID, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fileID{}, false
	}
	return fileID{resolved: resolved}, true
}

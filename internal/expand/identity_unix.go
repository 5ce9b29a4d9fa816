//go:build unix

package expand

import "golang.org/x/sys/unix"

// fileID identifies a directory independently of the path used to reach
// it.
type fileID struct {
	dev uint64
	ino uint64
}

func identify(path string) (fileID, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, false
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true //nolint:unconvert // Dev width varies by platform
}

//go:build unix

package storage

import (
	"os"
	"syscall"
)

// dirID identifies a directory independently of the path used to reach it
type dirID struct {
	dev uint64
	ino uint64
}

func directoryID(path string) (dirID, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return dirID{}, false
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return dirID{}, false
	}
	return dirID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}

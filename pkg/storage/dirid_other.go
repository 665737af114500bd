//go:build !unix

package storage

type dirID struct{}

// directoryID is unavailable without inode identity; symlinks are still
// never followed, so traversal cannot loop through them.
func directoryID(string) (dirID, bool) {
	return dirID{}, false
}

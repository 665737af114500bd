package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/sdejongh/dupnorris/pkg/models"
)

var (
	// ErrNotDirectory is returned when a root exists but is not a directory
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrSymlink is reported to the skip callback for symlinks, which are
	// never followed
	ErrSymlink = errors.New("symbolic link not followed")

	// ErrLoop is reported to the skip callback when a directory is reached
	// a second time (bind mounts, overlapping roots)
	ErrLoop = errors.New("directory already visited")
)

// Visited is the set of directory identities walked so far. Sources of one
// scan share a single set so a directory reachable from two roots (nested
// roots, bind mounts) is walked once.
type Visited struct {
	mu   sync.Mutex
	dirs map[dirID]struct{}
}

// NewVisited creates an empty directory set
func NewVisited() *Visited {
	return &Visited{dirs: make(map[dirID]struct{})}
}

// add records id and reports whether it was new
func (v *Visited) add(id dirID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, seen := v.dirs[id]; seen {
		return false
	}
	v.dirs[id] = struct{}{}
	return true
}

// Local enumerates files below a directory on the local filesystem
type Local struct {
	rootPath string
	minSize  int64
	matcher  *Matcher
	onSkip   SkipFunc
	visited  *Visited
}

// NewLocal creates a new local filesystem source. The root must exist and
// be a directory; symlinks in the root path are resolved so that every
// yielded path is the file's real path.
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, absPath)
	}

	return &Local{rootPath: absPath, minSize: 1}, nil
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.rootPath
}

// SetMinSize sets the smallest file size reported. Values below 1 are
// raised to 1 so that empty files are never yielded.
func (l *Local) SetMinSize(size int64) {
	if size < 1 {
		size = 1
	}
	l.minSize = size
}

// SetExcludePatterns sets glob patterns pruning files and directories
func (l *Local) SetExcludePatterns(patterns []string) {
	l.matcher = NewMatcher(patterns)
}

// SetSkipCallback sets a function notified of omitted entries
func (l *Local) SetSkipCallback(fn SkipFunc) {
	l.onSkip = fn
}

// SetVisited shares a directory set with other sources. Without one, each
// Walk tracks its own directories.
func (l *Local) SetVisited(v *Visited) {
	l.visited = v
}

// Walk lazily yields every regular file below the root using an explicit
// directory stack. Symlinks are never followed.
func (l *Local) Walk(ctx context.Context) iter.Seq[models.FileRecord] {
	return func(yield func(models.FileRecord) bool) {
		stack := []string{l.rootPath}
		visited := l.visited
		if visited == nil {
			visited = NewVisited()
		}

		for len(stack) > 0 {
			if ctx.Err() != nil {
				return
			}

			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if id, ok := directoryID(dir); ok && !visited.add(id) {
				l.skip(dir, ErrLoop)
				continue
			}

			// ReadDir returns the entries read before a failure
			entries, err := os.ReadDir(dir)
			if err != nil {
				l.skip(dir, err)
			}

			var subdirs []string
			for _, entry := range entries {
				path := filepath.Join(dir, entry.Name())
				mode := entry.Type()

				if mode&fs.ModeSymlink != 0 {
					l.skip(path, ErrSymlink)
					continue
				}

				if entry.IsDir() {
					if !l.excluded(path, true) {
						subdirs = append(subdirs, path)
					}
					continue
				}

				// Devices, sockets and pipes
				if !mode.IsRegular() {
					continue
				}

				if l.excluded(path, false) {
					continue
				}

				info, err := entry.Info()
				if err != nil {
					l.skip(path, err)
					continue
				}

				if info.Size() < l.minSize {
					continue
				}

				if !yield(models.FileRecord{Path: path, Size: info.Size()}) {
					return
				}
			}

			// Push in reverse so siblings are visited in directory order
			slices.Reverse(subdirs)
			stack = append(stack, subdirs...)
		}
	}
}

func (l *Local) excluded(path string, isDir bool) bool {
	if l.matcher == nil {
		return false
	}
	relPath, err := filepath.Rel(l.rootPath, path)
	if err != nil {
		return false
	}
	return l.matcher.Match(relPath, isDir)
}

func (l *Local) skip(path string, err error) {
	if l.onSkip != nil {
		l.onSkip(path, err)
	}
}

// Disk opens files directly from the local filesystem
type Disk struct {
	// Wrap optionally wraps every opened file (e.g., for rate limiting)
	Wrap func(ctx context.Context, rc io.ReadCloser) io.ReadCloser
}

// Open opens a file for reading
func (d Disk) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if d.Wrap != nil {
		return d.Wrap(ctx, file), nil
	}
	return file, nil
}

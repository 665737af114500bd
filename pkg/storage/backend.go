package storage

import (
	"context"
	"io"
	"iter"

	"github.com/sdejongh/dupnorris/pkg/models"
)

// Source enumerates the candidate files below a single root
type Source interface {
	// Root returns the absolute root directory
	Root() string

	// Walk lazily yields every regular, non-empty file below the root.
	// Entries that cannot be read are omitted. Iteration stops early when
	// ctx is cancelled.
	Walk(ctx context.Context) iter.Seq[models.FileRecord]
}

// Opener opens enumerated files for reading
type Opener interface {
	// Open opens the file at path for reading
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// SkipFunc is notified of entries omitted during enumeration
type SkipFunc func(path string, err error)

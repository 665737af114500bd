package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/storage"
)

// Fingerprinter computes a fast, non-cryptographic hash over the leading
// window of a file. Equal fingerprints only mean "possibly equal".
type Fingerprinter struct {
	opener     storage.Opener
	window     int
	bufferPool *sync.Pool
	bytesRead  atomic.Int64
}

// NewFingerprinter creates a fingerprinter reading at most window bytes per file
func NewFingerprinter(opener storage.Opener, window int) *Fingerprinter {
	if window < 1 {
		window = models.DefaultFingerprintWindow
	}
	return &Fingerprinter{
		opener: opener,
		window: window,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, window)
				return &buf
			},
		},
	}
}

// Window returns the number of leading bytes hashed
func (f *Fingerprinter) Window() int {
	return f.window
}

// Fingerprint hashes the first min(window, size) bytes of the file at path.
// Only the bytes actually read are hashed; a short read is not an error.
func (f *Fingerprinter) Fingerprint(ctx context.Context, path string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	reader, err := f.opener.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	bufPtr := f.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer f.bufferPool.Put(bufPtr)

	n, err := io.ReadFull(reader, buffer)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}
	f.bytesRead.Add(int64(n))

	return xxh3.Hash(buffer[:n]), nil
}

// BytesRead returns the total number of bytes fingerprinted so far
func (f *Fingerprinter) BytesRead() int64 {
	return f.bytesRead.Load()
}

package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"
	"sync/atomic"

	"github.com/zeebo/blake3"

	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/storage"
)

// Hasher computes the full-content cryptographic digest of a file
type Hasher struct {
	opener     storage.Opener
	algorithm  models.HashAlgorithm
	newHash    func() hash.Hash
	bufferSize int
	bufferPool *sync.Pool
	bytesRead  atomic.Int64
}

// NewHasher creates a streaming hasher reading files in chunkSize pieces
func NewHasher(opener storage.Opener, algorithm models.HashAlgorithm, chunkSize int) (*Hasher, error) {
	var newHash func() hash.Hash
	switch algorithm {
	case models.HashBLAKE3, "":
		algorithm = models.HashBLAKE3
		newHash = func() hash.Hash { return blake3.New() }
	case models.HashSHA256:
		newHash = sha256.New
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}

	if chunkSize < 1 {
		chunkSize = models.DefaultBufferSize
	}

	return &Hasher{
		opener:     opener,
		algorithm:  algorithm,
		newHash:    newHash,
		bufferSize: chunkSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, chunkSize)
				return &buf
			},
		},
	}, nil
}

// Algorithm returns the digest algorithm in use
func (h *Hasher) Algorithm() models.HashAlgorithm {
	return h.algorithm
}

// Digest streams the whole file through the hash and returns the lowercase
// hex digest. Cancellation is checked between chunks.
func (h *Hasher) Digest(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader, err := h.opener.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	hasher := h.newHash()

	bufPtr := h.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			h.bytesRead.Add(int64(n))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// BytesRead returns the total number of bytes digested so far
func (h *Hasher) BytesRead() int64 {
	return h.bytesRead.Load()
}

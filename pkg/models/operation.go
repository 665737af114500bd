package models

import (
	"fmt"
	"time"
)

// HashAlgorithm defines the cryptographic digest used to confirm duplicates
type HashAlgorithm string

const (
	// HashBLAKE3 uses 256-bit BLAKE3 (default)
	HashBLAKE3 HashAlgorithm = "blake3"
	// HashSHA256 uses SHA-256
	HashSHA256 HashAlgorithm = "sha256"
)

// ParseHashAlgorithm converts a user supplied name into a HashAlgorithm
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch HashAlgorithm(name) {
	case HashBLAKE3, HashSHA256:
		return HashAlgorithm(name), nil
	case "":
		return HashBLAKE3, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s (use: blake3, sha256)", name)
	}
}

// Default pipeline parameters
const (
	// DefaultFingerprintWindow is the number of leading bytes fingerprinted
	DefaultFingerprintWindow = 4096
	// DefaultBufferSize is the chunk size used to stream full-file digests
	DefaultBufferSize = 8192
)

// ScanOperation represents a duplicate scan configuration
type ScanOperation struct {
	ID                string
	Roots             []string
	HashAlgorithm     HashAlgorithm
	FingerprintWindow int
	BufferSize        int
	MinSize           int64 // Files smaller than this are ignored, at least 1
	ExcludePatterns   []string
	MaxWorkers        int
	BandwidthLimit    int64 // bytes per second, 0 = unlimited
	CreatedAt         time.Time
}

// Validate checks if the operation configuration is valid
func (op *ScanOperation) Validate() error {
	if len(op.Roots) == 0 {
		return &ValidationError{Field: "Roots", Message: "at least one root directory is required"}
	}
	if _, err := ParseHashAlgorithm(string(op.HashAlgorithm)); err != nil {
		return &ValidationError{Field: "HashAlgorithm", Message: err.Error()}
	}
	if op.MaxWorkers < 1 {
		return &ValidationError{Field: "MaxWorkers", Message: "max workers must be at least 1"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.FingerprintWindow < 1 {
		return &ValidationError{Field: "FingerprintWindow", Message: "fingerprint window must be at least 1 byte"}
	}
	if op.MinSize < 1 {
		return &ValidationError{Field: "MinSize", Message: "minimum size must be at least 1 byte"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

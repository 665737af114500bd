package models

// FileRecord is a regular, non-empty file found during enumeration.
// Records are created once by the enumerator and never modified.
type FileRecord struct {
	// Path is the absolute location of the file
	Path string

	// Size in bytes
	Size int64
}

// SizeBucket holds the candidate paths sharing one exact byte size
type SizeBucket struct {
	Size  int64
	Paths []string
}

// FingerprintBucket holds the paths of a single size bucket that also share
// the fingerprint of their leading bytes. Fingerprints are only comparable
// within the same size.
type FingerprintBucket struct {
	Size        int64
	Fingerprint uint64
	Paths       []string
}

// Cluster is a confirmed set of byte-identical files
type Cluster struct {
	// Digest is the hex-encoded full-content digest shared by every member
	Digest string

	// Size is the common file size in bytes
	Size int64

	// Paths lists the members, at least two
	Paths []string
}

// Wasted returns the bytes that would be reclaimed by keeping a single copy
func (c *Cluster) Wasted() int64 {
	if len(c.Paths) < 2 {
		return 0
	}
	return c.Size * int64(len(c.Paths)-1)
}

// Stage identifies a step of the duplicate detection pipeline
type Stage string

const (
	// StageEnumerate walks the roots collecting file records
	StageEnumerate Stage = "enumerate"
	// StageSize groups records by exact size
	StageSize Stage = "size"
	// StageFingerprint hashes the leading bytes of each candidate
	StageFingerprint Stage = "fingerprint"
	// StageConfirm computes the full-content digest of each candidate
	StageConfirm Stage = "confirm"
)

// Stages lists the pipeline stages in execution order
var Stages = []Stage{StageEnumerate, StageSize, StageFingerprint, StageConfirm}

package models

import (
	"time"
)

// Report represents the results of a duplicate scan
type Report struct {
	// Operation details
	RunID         string
	Roots         []string
	HashAlgorithm HashAlgorithm

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Statistics
	Stats Statistics

	// Confirmed duplicate sets
	Clusters []Cluster

	// Files dropped because they could not be read
	Errors []FileError

	// Overall status
	Status ScanStatus
}

// Statistics holds scan metrics
type Statistics struct {
	// Enumeration totals
	FilesScanned int
	BytesScanned int64

	// Files surviving each filter
	SizeCandidates        int
	FingerprintCandidates int
	FilesHashed           int

	// Bytes actually read by the fingerprint and confirmation stages
	FingerprintBytesRead int64
	DigestBytesRead      int64

	// Duplicates
	DuplicateSets   int
	DuplicateFiles  int
	DuplicatedBytes int64

	// Duplicated bytes keyed by lower-case extension ("other" when none)
	DuplicatedByExt map[string]int64
}

// ScanStatus represents the overall result
type ScanStatus string

const (
	// StatusSuccess indicates every candidate was read successfully
	StatusSuccess ScanStatus = "success"
	// StatusPartial indicates some files were dropped because of read errors
	StatusPartial ScanStatus = "partial"
	// StatusFailed indicates the scan could not produce a result
	StatusFailed ScanStatus = "failed"
	// StatusCancelled indicates the scan was aborted
	StatusCancelled ScanStatus = "cancelled"
)

// FileError records a file dropped from its bucket
type FileError struct {
	FilePath  string
	Stage     Stage
	Error     string
	Timestamp time.Time
}

// ExitCode returns the appropriate exit code for the scan status
func (s ScanStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

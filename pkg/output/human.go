package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sdejongh/dupnorris/pkg/models"
)

// maxListedClusters bounds the clusters printed on the console; the report
// file always lists all of them
const maxListedClusters = 20

// HumanFormatter formats the summary in human-readable, colored form
type HumanFormatter struct {
	header *color.Color
	digest *color.Color
	warn   *color.Color
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{
		header: color.New(color.Bold),
		digest: color.New(color.Faint),
		warn:   color.New(color.FgYellow),
	}
}

// Write renders the summary followed by the largest clusters
func (f *HumanFormatter) Write(w io.Writer, report *models.Report) error {
	stats := report.Stats

	fmt.Fprintf(w, "\n")
	f.header.Fprintf(w, "Scan completed in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Scanned:                 %d files, %s\n", stats.FilesScanned, formatBytes(stats.BytesScanned))
	fmt.Fprintf(w, "  Size candidates:         %d\n", stats.SizeCandidates)
	fmt.Fprintf(w, "  Fingerprint candidates:  %d\n", stats.FingerprintCandidates)
	fmt.Fprintf(w, "  Files hashed:            %d\n", stats.FilesHashed)
	fmt.Fprintf(w, "  Data read:               %s (fingerprint %s, digest %s)\n",
		formatBytes(stats.FingerprintBytesRead+stats.DigestBytesRead),
		formatBytes(stats.FingerprintBytesRead),
		formatBytes(stats.DigestBytesRead))
	fmt.Fprintf(w, "\n")

	f.header.Fprintf(w, "Duplicates: %d sets, %d files, %s reclaimable\n",
		stats.DuplicateSets, stats.DuplicateFiles, formatBytes(stats.DuplicatedBytes))

	for i, cluster := range report.Clusters {
		if i == maxListedClusters {
			fmt.Fprintf(w, "\n  ... %d more sets (see the report file)\n", len(report.Clusters)-i)
			break
		}
		fmt.Fprintf(w, "\n  %d files x %s  ", len(cluster.Paths), formatBytes(cluster.Size))
		f.digest.Fprintf(w, "%s:%s\n", report.HashAlgorithm, shortDigest(cluster.Digest))
		for _, path := range cluster.Paths {
			fmt.Fprintf(w, "    %s\n", path)
		}
	}

	if exts := sortedExtensions(stats.DuplicatedByExt); len(exts) > 0 {
		fmt.Fprintf(w, "\nBy extension:\n")
		for _, ext := range exts {
			fmt.Fprintf(w, "  %-12s %s\n", ext.Extension, formatBytes(ext.Bytes))
		}
	}

	fmt.Fprintf(w, "\nStatus: %s\n", f.status(report.Status))

	if len(report.Errors) > 0 {
		f.warn.Fprintf(w, "\nSkipped files (%d):\n", len(report.Errors))
		for _, fileErr := range report.Errors {
			fmt.Fprintf(w, "  [%s] %s: %s\n", fileErr.Stage, fileErr.FilePath, fileErr.Error)
		}
	}

	return nil
}

func (f *HumanFormatter) status(status models.ScanStatus) string {
	switch status {
	case models.StatusSuccess:
		return color.GreenString(string(status))
	case models.StatusPartial:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// formatBytes formats bytes with IEC units
func formatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

func shortDigest(digest string) string {
	if len(digest) > 16 {
		return digest[:16]
	}
	return digest
}

package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sdejongh/dupnorris/internal/platform"
	"github.com/sdejongh/dupnorris/pkg/models"
)

// Report file formats
const (
	ReportMarkdown = "markdown"
	ReportHTML     = "html"
	ReportJSON     = "json"
)

// ReportData is the serialized form of a scan report
type ReportData struct {
	RunID               string           `json:"run_id"`
	Roots               []string         `json:"roots"`
	HashAlgorithm       string           `json:"hash_algorithm"`
	StartedAt           time.Time        `json:"started_at"`
	Duration            string           `json:"duration"`
	Status              string           `json:"status"`
	TotalFilesChecked   int              `json:"total_files_checked"`
	TotalSizeChecked    int64            `json:"total_size_checked"`
	TotalDuplicatedSize int64            `json:"total_duplicated_size"`
	DuplicateSets       []DuplicateSet   `json:"duplicate_sets"`
	SizeByExt           map[string]int64 `json:"size_by_ext"`
	Stages              StageData        `json:"stages"`
	Errors              int              `json:"errors"`
	SkippedFiles        []SkippedFile    `json:"skipped_files,omitempty"`
}

// DuplicateSet is one cluster of identical files
type DuplicateSet struct {
	Digest string          `json:"digest"`
	Size   int64           `json:"size"`
	Files  []DuplicateFile `json:"files"`
}

// DuplicateFile describes one member of a duplicate set
type DuplicateFile struct {
	Name                string `json:"name"`
	ContainingDirectory string `json:"containing_directory"`
	Extension           string `json:"extension"`
}

// StageData holds the number of files surviving each filter and the bytes
// read to get there
type StageData struct {
	FilesEnumerated       int   `json:"files_enumerated"`
	SizeCandidates        int   `json:"size_candidates"`
	FingerprintCandidates int   `json:"fingerprint_candidates"`
	FilesHashed           int   `json:"files_hashed"`
	FingerprintBytesRead  int64 `json:"fingerprint_bytes_read"`
	DigestBytesRead       int64 `json:"digest_bytes_read"`
}

// SkippedFile is a file dropped because it could not be read
type SkippedFile struct {
	Path  string `json:"path"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// NewReportData converts a report into its serialized form
func NewReportData(report *models.Report) *ReportData {
	data := &ReportData{
		RunID:               report.RunID,
		Roots:               report.Roots,
		HashAlgorithm:       string(report.HashAlgorithm),
		StartedAt:           report.StartTime,
		Duration:            report.Duration.Round(time.Millisecond).String(),
		Status:              string(report.Status),
		TotalFilesChecked:   report.Stats.FilesScanned,
		TotalSizeChecked:    report.Stats.BytesScanned,
		TotalDuplicatedSize: report.Stats.DuplicatedBytes,
		DuplicateSets:       make([]DuplicateSet, 0, len(report.Clusters)),
		SizeByExt:           make(map[string]int64, len(report.Stats.DuplicatedByExt)),
		Stages: StageData{
			FilesEnumerated:       report.Stats.FilesScanned,
			SizeCandidates:        report.Stats.SizeCandidates,
			FingerprintCandidates: report.Stats.FingerprintCandidates,
			FilesHashed:           report.Stats.FilesHashed,
			FingerprintBytesRead:  report.Stats.FingerprintBytesRead,
			DigestBytesRead:       report.Stats.DigestBytesRead,
		},
		Errors: len(report.Errors),
	}

	for ext, size := range report.Stats.DuplicatedByExt {
		data.SizeByExt[ext] = size
	}

	for _, cluster := range report.Clusters {
		set := DuplicateSet{Digest: cluster.Digest, Size: cluster.Size}
		for _, path := range cluster.Paths {
			name, dir, ext := platform.SplitFile(path)
			set.Files = append(set.Files, DuplicateFile{
				Name:                name,
				ContainingDirectory: dir,
				Extension:           ext,
			})
		}
		data.DuplicateSets = append(data.DuplicateSets, set)
	}

	for _, fileErr := range report.Errors {
		data.SkippedFiles = append(data.SkippedFiles, SkippedFile{
			Path:  fileErr.FilePath,
			Stage: string(fileErr.Stage),
			Error: fileErr.Error,
		})
	}

	return data
}

// ExtensionSize is the duplicated size of one extension
type ExtensionSize struct {
	Extension string
	Bytes     int64
}

// sortedExtensions orders extensions by duplicated size, largest first
func sortedExtensions(byExt map[string]int64) []ExtensionSize {
	exts := make([]ExtensionSize, 0, len(byExt))
	for ext, size := range byExt {
		exts = append(exts, ExtensionSize{Extension: ext, Bytes: size})
	}
	sort.Slice(exts, func(i, j int) bool {
		if exts[i].Bytes != exts[j].Bytes {
			return exts[i].Bytes > exts[j].Bytes
		}
		return exts[i].Extension < exts[j].Extension
	})
	return exts
}

// WriteReport writes the report file in the given format
// ("markdown", "html" or "json")
func WriteReport(report *models.Report, path string, format string) error {
	var buf bytes.Buffer
	if err := RenderReport(&buf, report, format); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// RenderReport renders the report in the given format to w
func RenderReport(w io.Writer, report *models.Report, format string) error {
	data := NewReportData(report)

	switch format {
	case ReportJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case ReportHTML:
		return writeHTML(w, data)
	case ReportMarkdown, "":
		return writeMarkdown(w, data)
	default:
		return fmt.Errorf("unknown report format: %s (use: markdown, html, json)", format)
	}
}

var markdownTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"md":    escapeMarkdown,
	"bytes": formatBytes,
	"inc":   func(i int) int { return i + 1 },
	"exts":  sortedExtensions,
}).Parse(`# Duplicate files report

| | |
|---|---|
| Run | {{md .RunID}} |
| Roots | {{range $i, $r := .Roots}}{{if $i}}, {{end}}{{md $r}}{{end}} |
| Started | {{.StartedAt.Format "2006-01-02 15:04:05"}} |
| Duration | {{.Duration}} |
| Status | **{{.Status}}** |
| Files checked | {{.TotalFilesChecked}} ({{bytes .TotalSizeChecked}}) |
| Duplicated size | {{bytes .TotalDuplicatedSize}} |
| Duplicate sets | {{len .DuplicateSets}} |
{{- if .SizeByExt}}

## Duplicated size by extension

| Extension | Duplicated size |
|---|---:|
{{- range exts .SizeByExt}}
| {{md .Extension}} | {{bytes .Bytes}} |
{{- end}}
{{- end}}

## Duplicate sets
{{- if not .DuplicateSets}}

No duplicates found.
{{- end}}
{{- range $i, $set := .DuplicateSets}}

### {{inc $i}}. {{len $set.Files}} files of {{bytes $set.Size}}

Digest: {{md $set.Digest}}

| Name | Containing directory | Extension |
|---|---|---|
{{- range $set.Files}}
| {{md .Name}} | {{md .ContainingDirectory}} | {{md .Extension}} |
{{- end}}
{{- end}}
{{- if .SkippedFiles}}

## Skipped files

| Path | Stage | Error |
|---|---|---|
{{- range .SkippedFiles}}
| {{md .Path}} | {{.Stage}} | {{md .Error}} |
{{- end}}
{{- end}}
`))

func writeMarkdown(w io.Writer, data *ReportData) error {
	if err := markdownTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render markdown report: %w", err)
	}
	return nil
}

// markdownPunctuation are the characters escaped in report cells
const markdownPunctuation = "\\`*_[]<>|~&"

// escapeMarkdown backslash-escapes punctuation so that file names render
// literally inside table cells
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case strings.ContainsRune(markdownPunctuation, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

const htmlLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 72em; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; text-align: left; vertical-align: top; }
th { background: #f3f3f3; }
h3 { margin-top: 2em; }
</style>
</head>
<body>
%s
<script type="application/json" id="report-data">
%s
</script>
</body>
</html>
`

// writeHTML renders the markdown report to HTML and embeds the JSON
// document for scripts
func writeHTML(w io.Writer, data *ReportData) error {
	var md bytes.Buffer
	if err := writeMarkdown(&md, data); err != nil {
		return err
	}

	renderer := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := renderer.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}

	// json.Marshal escapes <, > and &, so the payload cannot close the
	// script element
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode report data: %w", err)
	}

	title := "Duplicate files report"
	if data.RunID != "" {
		title += " " + data.RunID
	}

	_, err = fmt.Fprintf(w, htmlLayout, html.EscapeString(title), body.String(), payload)
	return err
}

package output

import (
	"encoding/json"
	"io"

	"github.com/sdejongh/dupnorris/pkg/models"
)

// JSONFormatter writes the report document as indented JSON for automation
// and scripting
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Write encodes the report document to w
func (f *JSONFormatter) Write(w io.Writer, report *models.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewReportData(report))
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

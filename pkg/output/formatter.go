package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/dupnorris/pkg/models"
)

// Formatter renders the console summary of a finished scan
type Formatter interface {
	// Write renders the report to w
	Write(w io.Writer, report *models.Report) error

	// Name returns the formatter name
	Name() string
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "human", "":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (use: human, json)", name)
	}
}

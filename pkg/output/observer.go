package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/sdejongh/dupnorris/pkg/models"
)

// Observer receives progress notifications from the scan pipeline.
// Implementations must be safe for concurrent use.
type Observer interface {
	// StageStart announces a stage and the number of units it will process
	StageStart(stage models.Stage, total int)

	// StageAdvance reports n completed units (buckets or files)
	StageAdvance(stage models.Stage, n int)

	// StageDone reports the number of files surviving the stage
	StageDone(stage models.Stage, survivors int)

	// FileFound is called for each file yielded by enumeration
	FileFound(path string, size int64)
}

// NullObserver discards all notifications
type NullObserver struct{}

func (NullObserver) StageStart(models.Stage, int)   {}
func (NullObserver) StageAdvance(models.Stage, int) {}
func (NullObserver) StageDone(models.Stage, int)    {}
func (NullObserver) FileFound(string, int64)        {}

// NewObserver selects the observer for a terminal: nothing when quiet,
// progress bars when w is a terminal and progress is requested, plain
// lines otherwise.
func NewObserver(w *os.File, quiet, progress bool) Observer {
	if quiet || w == nil {
		return NullObserver{}
	}
	if progress && term.IsTerminal(int(w.Fd())) {
		return NewProgressObserver(w)
	}
	return NewLineObserver(w)
}

// stageNumber returns the 1-based position of a stage in the pipeline
func stageNumber(stage models.Stage) int {
	for i, s := range models.Stages {
		if s == stage {
			return i + 1
		}
	}
	return 0
}

// stageTitle returns the display title of a stage
func stageTitle(stage models.Stage) string {
	switch stage {
	case models.StageEnumerate:
		return "Enumerating files"
	case models.StageSize:
		return "Grouping by size"
	case models.StageFingerprint:
		return "Fingerprinting candidates"
	case models.StageConfirm:
		return "Confirming duplicates"
	default:
		return string(stage)
	}
}

// LineObserver prints one line per stage transition
type LineObserver struct {
	mu      sync.Mutex
	writer  io.Writer
	files   int
	bytes   int64
	step    *color.Color
	summary *color.Color
}

// NewLineObserver creates a line observer writing to w
func NewLineObserver(w io.Writer) *LineObserver {
	return &LineObserver{
		writer:  w,
		step:    color.New(color.FgCyan, color.Bold),
		summary: color.New(color.Faint),
	}
}

func (o *LineObserver) StageStart(stage models.Stage, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.step.Fprintf(o.writer, "[%d/%d] ", stageNumber(stage), len(models.Stages))
	if stage == models.StageEnumerate {
		fmt.Fprintf(o.writer, "%s...\n", stageTitle(stage))
		return
	}
	fmt.Fprintf(o.writer, "%s (%d tasks)...\n", stageTitle(stage), total)
}

func (o *LineObserver) StageAdvance(models.Stage, int) {}

func (o *LineObserver) StageDone(stage models.Stage, survivors int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if stage == models.StageEnumerate {
		o.summary.Fprintf(o.writer, "      %d files, %s\n", o.files, humanize.IBytes(uint64(o.bytes)))
		return
	}
	o.summary.Fprintf(o.writer, "      %d candidates remain\n", survivors)
}

func (o *LineObserver) FileFound(path string, size int64) {
	o.mu.Lock()
	o.files++
	o.bytes += size
	o.mu.Unlock()
}

package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/sdejongh/dupnorris/pkg/models"
)

const (
	// Enumeration has no known total, so only a running counter is shown
	counterTemplate = `{{string . "prefix"}} {{counters . }} files {{etime . }}`
	barTemplate     = `{{string . "prefix"}} {{bar . "[" "=" ">" " " "]"}} {{counters . }} {{percent . }} {{etime . }}`
)

// ProgressObserver renders one progress bar per pipeline stage
type ProgressObserver struct {
	writer io.Writer

	mu   sync.Mutex
	bars map[models.Stage]*pb.ProgressBar
}

// NewProgressObserver creates a progress bar observer writing to w
func NewProgressObserver(w io.Writer) *ProgressObserver {
	return &ProgressObserver{
		writer: w,
		bars:   make(map[models.Stage]*pb.ProgressBar),
	}
}

func (o *ProgressObserver) StageStart(stage models.Stage, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tmpl := barTemplate
	if stage == models.StageEnumerate {
		tmpl = counterTemplate
	}

	bar := pb.New(total)
	bar.SetTemplateString(tmpl)
	bar.SetWriter(o.writer)
	bar.Set("prefix", fmt.Sprintf("[%d/%d] %s", stageNumber(stage), len(models.Stages), stageTitle(stage)))
	bar.Start()

	o.bars[stage] = bar
}

func (o *ProgressObserver) StageAdvance(stage models.Stage, n int) {
	o.mu.Lock()
	bar := o.bars[stage]
	o.mu.Unlock()

	if bar != nil {
		bar.Add(n)
	}
}

func (o *ProgressObserver) StageDone(stage models.Stage, survivors int) {
	o.mu.Lock()
	bar := o.bars[stage]
	delete(o.bars, stage)
	o.mu.Unlock()

	if bar != nil {
		bar.Finish()
	}
}

func (o *ProgressObserver) FileFound(path string, size int64) {
	o.StageAdvance(models.StageEnumerate, 1)
}

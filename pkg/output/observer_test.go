package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/dupnorris/pkg/models"
)

func TestNewObserver(t *testing.T) {
	file, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer file.Close()

	assert.IsType(t, NullObserver{}, NewObserver(file, true, true))
	assert.IsType(t, NullObserver{}, NewObserver(nil, false, true))
	// A regular file is not a terminal
	assert.IsType(t, &LineObserver{}, NewObserver(file, false, true))
}

func TestLineObserver(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	var buf bytes.Buffer
	o := NewLineObserver(&buf)

	o.StageStart(models.StageEnumerate, 0)
	o.FileFound("/a", 1024)
	o.FileFound("/b", 1024)
	o.StageDone(models.StageEnumerate, 2)
	o.StageStart(models.StageFingerprint, 1)
	o.StageAdvance(models.StageFingerprint, 1)
	o.StageDone(models.StageFingerprint, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[1/4] Enumerating files...", lines[0])
	assert.Contains(t, lines[1], "2 files, 2.0 KiB")
	assert.Equal(t, "[3/4] Fingerprinting candidates (1 tasks)...", lines[2])
	assert.Contains(t, lines[3], "2 candidates remain")
}

func TestProgressObserverConcurrent(t *testing.T) {
	var buf bytes.Buffer
	o := NewProgressObserver(&syncWriter{w: &buf})

	o.StageStart(models.StageConfirm, 100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				o.StageAdvance(models.StageConfirm, 1)
			}
		}()
	}
	wg.Wait()
	o.StageDone(models.StageConfirm, 50)

	// Unknown or finished stages are ignored
	o.StageAdvance(models.StageConfirm, 1)
	o.StageDone(models.StageSize, 0)

	assert.Contains(t, buf.String(), "Confirming duplicates")
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func TestStageNumber(t *testing.T) {
	for i, stage := range models.Stages {
		assert.Equal(t, i+1, stageNumber(stage))
	}
	assert.Zero(t, stageNumber("unknown"))
}

package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/dupnorris/pkg/logging"
	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/output"
	"github.com/sdejongh/dupnorris/pkg/storage"
)

// Engine orchestrates a duplicate scan and decorates the pipeline result
// with run metadata
type Engine struct {
	sources       []storage.Source
	fingerprinter Fingerprinter
	digester      Digester
	observer      output.Observer
	logger        logging.Logger
	operation     *models.ScanOperation
}

// NewEngine creates a new scan engine
func NewEngine(
	sources []storage.Source,
	fingerprinter Fingerprinter,
	digester Digester,
	observer output.Observer,
	logger logging.Logger,
	operation *models.ScanOperation,
) *Engine {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{
		sources:       sources,
		fingerprinter: fingerprinter,
		digester:      digester,
		observer:      observer,
		logger:        logger,
		operation:     operation,
	}
}

// Run executes the scan. A report is returned even when the run is
// cancelled; its status tells how far it got.
func (e *Engine) Run(ctx context.Context) (*models.Report, error) {
	if err := e.operation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan operation: %w", err)
	}
	if e.operation.ID == "" {
		e.operation.ID = uuid.New().String()
	}

	startTime := time.Now()
	e.logger.Info(ctx, "Starting duplicate scan", logging.Fields{
		"run_id":      e.operation.ID,
		"roots":       e.operation.Roots,
		"hash":        string(e.operation.HashAlgorithm),
		"max_workers": e.operation.MaxWorkers,
	})

	pipeline := NewPipeline(
		e.sources,
		e.fingerprinter,
		e.digester,
		e.observer,
		e.logger,
		PipelineConfig{MaxWorkers: e.operation.MaxWorkers},
	)

	report, err := pipeline.Run(ctx)

	report.RunID = e.operation.ID
	report.Roots = e.operation.Roots
	report.HashAlgorithm = e.operation.HashAlgorithm
	report.StartTime = startTime
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(startTime)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		report.Status = models.StatusCancelled
		e.logger.Warn(ctx, "Scan cancelled", logging.Fields{"run_id": report.RunID})
		return report, err
	case err != nil:
		report.Status = models.StatusFailed
		e.logger.Error(ctx, "Scan failed", err, logging.Fields{"run_id": report.RunID})
		return report, err
	case len(report.Errors) > 0:
		report.Status = models.StatusPartial
	default:
		report.Status = models.StatusSuccess
	}

	e.logger.Info(ctx, "Scan completed", logging.Fields{
		"run_id":           report.RunID,
		"status":           string(report.Status),
		"files_scanned":    report.Stats.FilesScanned,
		"duplicate_sets":   report.Stats.DuplicateSets,
		"duplicated_bytes": report.Stats.DuplicatedBytes,
		"errors":           len(report.Errors),
		"duration":         report.Duration.String(),
	})

	return report, nil
}

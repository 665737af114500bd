package scan

import (
	"context"
	"sort"
	"time"

	"github.com/sdejongh/dupnorris/internal/platform"
	"github.com/sdejongh/dupnorris/pkg/logging"
	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/output"
	"github.com/sdejongh/dupnorris/pkg/storage"
)

// Pipeline runs the progressive duplicate detection stages. Each stage only
// sees the survivors of the previous one:
//
//	enumerate -> size buckets -> fingerprint buckets -> digest clusters
type Pipeline struct {
	sources       []storage.Source
	fingerprinter Fingerprinter
	digester      Digester
	observer      output.Observer
	logger        logging.Logger
	pool          *pool
}

// PipelineConfig holds configuration for the pipeline
type PipelineConfig struct {
	// MaxWorkers bounds concurrent file reads; 0 means one per CPU
	MaxWorkers int
}

// NewPipeline creates a new scan pipeline
func NewPipeline(
	sources []storage.Source,
	fingerprinter Fingerprinter,
	digester Digester,
	observer output.Observer,
	logger logging.Logger,
	config PipelineConfig,
) *Pipeline {
	if observer == nil {
		observer = output.NullObserver{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &Pipeline{
		sources:       sources,
		fingerprinter: fingerprinter,
		digester:      digester,
		observer:      observer,
		logger:        logger,
		pool:          newPool(config.MaxWorkers),
	}
}

// fingerprintResult is the result slot owned by one size bucket task
type fingerprintResult struct {
	groups map[uint64][]string
	errs   []models.FileError
}

// confirmTask identifies one file of one fingerprint bucket
type confirmTask struct {
	bucket int
	index  int
}

// Run executes every stage and returns the clusters, statistics and
// per-file errors. When ctx is cancelled the partially filled report is
// returned together with the context error.
func (p *Pipeline) Run(ctx context.Context) (*models.Report, error) {
	report := &models.Report{
		Stats: models.Statistics{DuplicatedByExt: make(map[string]int64)},
	}

	// Stage 1: enumeration
	records, err := p.enumerate(ctx, report)
	if err != nil {
		return report, err
	}

	// Stage 2: size buckets
	p.observer.StageStart(models.StageSize, len(records))
	sizeBuckets := sortedSizeBuckets(BucketBySize(records))
	records = nil
	for _, bucket := range sizeBuckets {
		report.Stats.SizeCandidates += len(bucket.Paths)
	}
	p.observer.StageAdvance(models.StageSize, report.Stats.FilesScanned)
	p.observer.StageDone(models.StageSize, report.Stats.SizeCandidates)

	p.logger.Debug(ctx, "Size grouping complete", logging.Fields{
		"buckets":    len(sizeBuckets),
		"candidates": report.Stats.SizeCandidates,
	})

	// Stage 3: fingerprints, one task per size bucket
	fpBuckets, err := p.fingerprint(ctx, sizeBuckets, report)
	if err != nil {
		return report, err
	}

	// Stage 4: full digests, one task per file
	if err := p.confirm(ctx, fpBuckets, report); err != nil {
		return report, err
	}

	p.readCounters(report)
	return report, nil
}

func (p *Pipeline) enumerate(ctx context.Context, report *models.Report) ([]models.FileRecord, error) {
	p.observer.StageStart(models.StageEnumerate, 0)

	var records []models.FileRecord
	seen := make(map[string]struct{})

	for _, source := range p.sources {
		p.logger.Info(ctx, "Enumerating root", logging.Fields{"root": source.Root()})

		for record := range source.Walk(ctx) {
			// Overlapping roots reach the same file twice
			if _, dup := seen[record.Path]; dup {
				continue
			}
			seen[record.Path] = struct{}{}

			records = append(records, record)
			report.Stats.FilesScanned++
			report.Stats.BytesScanned += record.Size
			p.observer.FileFound(record.Path, record.Size)
		}

		if err := ctx.Err(); err != nil {
			p.observer.StageDone(models.StageEnumerate, len(records))
			return nil, err
		}
	}

	p.observer.StageDone(models.StageEnumerate, len(records))
	p.logger.Info(ctx, "Enumeration complete", logging.Fields{
		"files": report.Stats.FilesScanned,
		"bytes": report.Stats.BytesScanned,
	})
	return records, nil
}

func (p *Pipeline) fingerprint(ctx context.Context, sizeBuckets []models.SizeBucket, report *models.Report) ([]models.FingerprintBucket, error) {
	p.observer.StageStart(models.StageFingerprint, len(sizeBuckets))

	results := make([]fingerprintResult, len(sizeBuckets))
	err := p.pool.run(ctx, len(sizeBuckets), func(ctx context.Context, i int) {
		slot := &results[i]
		groups, err := FingerprintBucket(ctx, p.fingerprinter, sizeBuckets[i].Paths, func(path string, err error) {
			slot.errs = append(slot.errs, p.fileError(ctx, path, models.StageFingerprint, err))
		})
		if err == nil {
			slot.groups = groups
		}
		p.observer.StageAdvance(models.StageFingerprint, 1)
	})

	// Merge after the barrier
	var buckets []models.FingerprintBucket
	for i, result := range results {
		report.Errors = append(report.Errors, result.errs...)

		sums := make([]uint64, 0, len(result.groups))
		for sum := range result.groups {
			sums = append(sums, sum)
		}
		sort.Slice(sums, func(a, b int) bool { return sums[a] < sums[b] })

		for _, sum := range sums {
			buckets = append(buckets, models.FingerprintBucket{
				Size:        sizeBuckets[i].Size,
				Fingerprint: sum,
				Paths:       result.groups[sum],
			})
			report.Stats.FingerprintCandidates += len(result.groups[sum])
		}
	}

	p.observer.StageDone(models.StageFingerprint, report.Stats.FingerprintCandidates)
	if err != nil {
		return nil, err
	}

	p.logger.Debug(ctx, "Fingerprinting complete", logging.Fields{
		"buckets":    len(buckets),
		"candidates": report.Stats.FingerprintCandidates,
	})
	return buckets, nil
}

func (p *Pipeline) confirm(ctx context.Context, buckets []models.FingerprintBucket, report *models.Report) error {
	var tasks []confirmTask
	digests := make([][]string, len(buckets))
	for b, bucket := range buckets {
		digests[b] = make([]string, len(bucket.Paths))
		for i := range bucket.Paths {
			tasks = append(tasks, confirmTask{bucket: b, index: i})
		}
	}

	p.observer.StageStart(models.StageConfirm, len(tasks))

	fileErrs := make([]*models.FileError, len(tasks))
	err := p.pool.run(ctx, len(tasks), func(ctx context.Context, t int) {
		task := tasks[t]
		path := buckets[task.bucket].Paths[task.index]

		sum, err := p.digester.Digest(ctx, path)
		if err != nil {
			if ctx.Err() == nil {
				fileErr := p.fileError(ctx, path, models.StageConfirm, err)
				fileErrs[t] = &fileErr
			}
		} else {
			digests[task.bucket][task.index] = sum
		}
		p.observer.StageAdvance(models.StageConfirm, 1)
	})

	for _, fileErr := range fileErrs {
		if fileErr != nil {
			report.Errors = append(report.Errors, *fileErr)
		}
	}
	if err != nil {
		p.observer.StageDone(models.StageConfirm, 0)
		return err
	}

	sizes := make([]int64, len(buckets))
	groups := make([]map[string][]string, len(buckets))
	for b, bucket := range buckets {
		sizes[b] = bucket.Size
		for _, sum := range digests[b] {
			if sum != "" {
				report.Stats.FilesHashed++
			}
		}
		groups[b] = ConfirmGroups(bucket.Paths, digests[b])
	}

	report.Clusters = Assemble(sizes, groups)
	for _, cluster := range report.Clusters {
		wasted := cluster.Wasted()
		report.Stats.DuplicateSets++
		report.Stats.DuplicateFiles += len(cluster.Paths)
		report.Stats.DuplicatedBytes += wasted
		report.Stats.DuplicatedByExt[platform.Extension(cluster.Paths[0])] += wasted
	}

	p.observer.StageDone(models.StageConfirm, report.Stats.DuplicateFiles)
	p.logger.Info(ctx, "Confirmation complete", logging.Fields{
		"duplicate_sets":   report.Stats.DuplicateSets,
		"duplicate_files":  report.Stats.DuplicateFiles,
		"duplicated_bytes": report.Stats.DuplicatedBytes,
	})
	return nil
}

// fileError logs a dropped file and builds its report entry
func (p *Pipeline) fileError(ctx context.Context, path string, stage models.Stage, err error) models.FileError {
	p.logger.Warn(ctx, "Dropping unreadable file", logging.Fields{
		"path":  path,
		"stage": string(stage),
		"error": err.Error(),
	})
	return models.FileError{
		FilePath:  path,
		Stage:     stage,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
}

// readCounters copies the byte counters of digest implementations that
// expose them
func (p *Pipeline) readCounters(report *models.Report) {
	type counter interface{ BytesRead() int64 }

	if c, ok := p.fingerprinter.(counter); ok {
		report.Stats.FingerprintBytesRead = c.BytesRead()
	}
	if c, ok := p.digester.(counter); ok {
		report.Stats.DigestBytesRead = c.BytesRead()
	}
}

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/sdejongh/dupnorris/internal/platform"
	"github.com/sdejongh/dupnorris/pkg/config"
	"github.com/sdejongh/dupnorris/pkg/logging"
	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/ratelimit"
)

// validateRoots resolves the scan roots to real absolute paths (symlinks
// evaluated) and checks that each one is an existing directory
func validateRoots(roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one directory is required")
	}

	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := platform.RealRoot(root)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("directory does not exist: %s", root)
		} else if err != nil {
			return nil, fmt.Errorf("invalid directory %q: %w", root, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to access directory: %w", err)
		} else if !info.IsDir() {
			return nil, fmt.Errorf("path exists but is not a directory: %s", root)
		}

		resolved = append(resolved, abs)
	}
	return resolved, nil
}

// validateDistinctRoots rejects a pair of roots naming the same directory.
// Roots come from validateRoots, so a symlink and its target compare equal.
func validateDistinctRoots(roots []string) error {
	if len(roots) != 2 {
		return fmt.Errorf("exactly two directories are required, got %d", len(roots))
	}
	if roots[0] == roots[1] {
		return fmt.Errorf("both directories are the same: %s", roots[0])
	}
	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	return config.Load(globalFlags.ConfigFile)
}

// applyFlagsToConfig overrides config values with command-line flags and
// validates the result
func applyFlagsToConfig(cfg *config.Config) error {
	if scanFlags.Hash != "" {
		cfg.Scan.Hash = models.HashAlgorithm(scanFlags.Hash)
	}
	if scanFlags.FingerprintWindow > 0 {
		cfg.Scan.FingerprintWindow = scanFlags.FingerprintWindow
	}
	if scanFlags.MinSize != "" {
		minSize, err := humanize.ParseBytes(scanFlags.MinSize)
		if err != nil {
			return fmt.Errorf("invalid minimum size %q: %w", scanFlags.MinSize, err)
		}
		cfg.Scan.MinSize = int64(minSize)
	}

	if scanFlags.Parallel > 0 {
		cfg.Performance.MaxWorkers = scanFlags.Parallel
	}
	if scanFlags.BufferSize > 0 {
		cfg.Performance.BufferSize = scanFlags.BufferSize
	}
	if scanFlags.Bandwidth != "" {
		cfg.Performance.BandwidthLimit = scanFlags.Bandwidth
	}

	if scanFlags.NoExclude {
		cfg.Exclude = []string{}
	}
	if len(scanFlags.Exclude) > 0 {
		cfg.Exclude = scanFlags.Exclude
	}

	if scanFlags.Output != "" {
		cfg.Output.Format = scanFlags.Output
	}
	if scanFlags.ReportFormat != "" {
		cfg.Output.ReportFormat = scanFlags.ReportFormat
	}

	if scanFlags.LogFile != "" {
		cfg.Logging.File = scanFlags.LogFile
	}
	if scanFlags.LogFormat != "" {
		cfg.Logging.Format = scanFlags.LogFormat
	}
	if scanFlags.LogLevel != "" {
		cfg.Logging.Level = scanFlags.LogLevel
	}

	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Debug lines share stderr with the progress bars
	if globalFlags.Verbose {
		cfg.Output.Progress = false
	}

	return cfg.Validate()
}

// createScanOperation creates a scan operation from configuration. Repeated
// and nested roots are collapsed into their ancestor.
func createScanOperation(cfg *config.Config, roots []string) (*models.ScanOperation, error) {
	bandwidth, err := ratelimit.ParseBandwidth(cfg.Performance.BandwidthLimit)
	if err != nil {
		return nil, err
	}

	operation := &models.ScanOperation{
		ID:                uuid.New().String(),
		Roots:             platform.CollapseRoots(roots),
		HashAlgorithm:     cfg.Scan.Hash,
		FingerprintWindow: cfg.Scan.FingerprintWindow,
		BufferSize:        cfg.Performance.BufferSize,
		MinSize:           cfg.Scan.MinSize,
		ExcludePatterns:   cfg.Exclude,
		MaxWorkers:        cfg.Workers(),
		BandwidthLimit:    bandwidth,
		CreatedAt:         time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}

// createLogger creates a logger based on configuration. A log file takes
// precedence; --verbose logs to stderr; otherwise nothing is logged.
func createLogger(cfg *config.Config) (logging.Logger, error) {
	if cfg.Logging.File != "" {
		logger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     logging.ParseFormat(cfg.Logging.Format),
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSize:    10 * 1024 * 1024, // 10 MB
			MaxBackups: 5,
		})
		if err != nil {
			return nil, err
		}
		return logger, nil
	}

	if globalFlags.Verbose {
		return logging.NewWriterLogger(os.Stderr, logging.FormatText, logging.DebugLevel), nil
	}

	return logging.NewNullLogger(), nil
}

package config

import (
	"runtime"

	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/ratelimit"
)

// Config represents the application configuration
type Config struct {
	Scan        ScanConfig        `yaml:"scan"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Exclude     []string          `yaml:"exclude"`
}

// ScanConfig holds duplicate detection settings
type ScanConfig struct {
	Hash              models.HashAlgorithm `yaml:"hash"`               // "blake3" or "sha256"
	FingerprintWindow int                  `yaml:"fingerprint_window"` // Leading bytes fingerprinted
	MinSize           int64                `yaml:"min_size"`           // Smaller files are ignored
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers     int    `yaml:"max_workers"`     // 0 = one per CPU
	BufferSize     int    `yaml:"buffer_size"`     // Digest chunk size
	BandwidthLimit string `yaml:"bandwidth_limit"` // e.g. "50MB", empty = unlimited
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format       string `yaml:"format"`        // "human" or "json"
	Progress     bool   `yaml:"progress"`      // Show progress bars on a terminal
	Quiet        bool   `yaml:"quiet"`         // Suppress non-error output
	ReportFormat string `yaml:"report_format"` // "markdown", "html" or "json"
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	File   string `yaml:"file"`   // Log file path (empty = no file)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Hash:              models.HashBLAKE3,
			FingerprintWindow: models.DefaultFingerprintWindow,
			MinSize:           1,
		},
		Performance: PerformanceConfig{
			MaxWorkers: 0,
			BufferSize: models.DefaultBufferSize,
		},
		Output: OutputConfig{
			Format:       "human",
			Progress:     true,
			Quiet:        false,
			ReportFormat: "markdown",
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
			File:   "",
		},
		Exclude: []string{},
	}
}

// Workers returns the configured worker count, one per CPU when unset
func (c *Config) Workers() int {
	if c.Performance.MaxWorkers > 0 {
		return c.Performance.MaxWorkers
	}
	return runtime.NumCPU()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := models.ParseHashAlgorithm(string(c.Scan.Hash)); err != nil {
		return &models.ValidationError{
			Field:   "scan.hash",
			Message: "must be 'blake3' or 'sha256'",
		}
	}

	if c.Scan.FingerprintWindow < 1 {
		return &models.ValidationError{
			Field:   "scan.fingerprint_window",
			Message: "must be at least 1 byte",
		}
	}

	if c.Scan.MinSize < 1 {
		return &models.ValidationError{
			Field:   "scan.min_size",
			Message: "must be at least 1 byte",
		}
	}

	if c.Performance.MaxWorkers < 0 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be 0 (auto) or positive",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if _, err := ratelimit.ParseBandwidth(c.Performance.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validReportFormats := map[string]bool{"markdown": true, "html": true, "json": true}
	if !validReportFormats[c.Output.ReportFormat] {
		return &models.ValidationError{
			Field:   "output.report_format",
			Message: "must be 'markdown', 'html', or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

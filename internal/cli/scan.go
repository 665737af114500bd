package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dupnorris/pkg/config"
	"github.com/sdejongh/dupnorris/pkg/digest"
	"github.com/sdejongh/dupnorris/pkg/logging"
	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/output"
	"github.com/sdejongh/dupnorris/pkg/ratelimit"
	"github.com/sdejongh/dupnorris/pkg/scan"
	"github.com/sdejongh/dupnorris/pkg/storage"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <dir>...",
		Short: "Find duplicate files below one or more directories",
		Long: `Scan one or more directory trees and report every set of files with
identical content. Candidates are narrowed by size, then by a fingerprint of
their leading bytes, and finally confirmed with a full content digest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := validateRoots(args)
			if err != nil {
				return err
			}
			return runScan(cmd, roots)
		},
	}

	addScanFlags(cmd)

	return cmd
}

// runScan runs a scan over roots and exits with the status code of the
// resulting report
func runScan(cmd *cobra.Command, roots []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	report, err := executeScan(ctx, cfg, roots)
	if report == nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := writeOutputs(cmd, cfg, report); err != nil {
		return err
	}

	// Exit with appropriate code
	os.Exit(report.Status.ExitCode())
	return nil
}

// executeScan wires the scan collaborators from cfg and runs the engine.
// Cancelled and failed runs still return a report along with the error.
func executeScan(ctx context.Context, cfg *config.Config, roots []string) (*models.Report, error) {
	operation, err := createScanOperation(cfg, roots)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan operation: %w", err)
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	sources, err := createSources(ctx, operation, logger)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewLimiter(operation.BandwidthLimit)
	opener := storage.Disk{
		Wrap: func(ctx context.Context, rc io.ReadCloser) io.ReadCloser {
			return ratelimit.NewReadCloser(ctx, rc, limiter)
		},
	}

	fingerprinter := digest.NewFingerprinter(opener, operation.FingerprintWindow)
	hasher, err := digest.NewHasher(opener, operation.HashAlgorithm, operation.BufferSize)
	if err != nil {
		return nil, err
	}

	observer := output.NewObserver(os.Stderr, cfg.Output.Quiet, cfg.Output.Progress)

	engine := scan.NewEngine(sources, fingerprinter, hasher, observer, logger, operation)
	return engine.Run(ctx)
}

// createSources creates one enumerator per root. The enumerators share one
// visited-directory set so bind-mounted trees are walked once.
func createSources(ctx context.Context, operation *models.ScanOperation, logger logging.Logger) ([]storage.Source, error) {
	visited := storage.NewVisited()
	sources := make([]storage.Source, 0, len(operation.Roots))
	for _, root := range operation.Roots {
		local, err := storage.NewLocal(root)
		if err != nil {
			return nil, fmt.Errorf("failed to open root %s: %w", root, err)
		}
		local.SetMinSize(operation.MinSize)
		local.SetExcludePatterns(operation.ExcludePatterns)
		local.SetVisited(visited)
		local.SetSkipCallback(func(path string, err error) {
			logger.Debug(ctx, "Skipping entry", logging.Fields{
				"path":  path,
				"error": err.Error(),
			})
		})
		sources = append(sources, local)
	}
	return sources, nil
}

// writeOutputs prints the console summary and writes the report file.
// The report goes to stdout when only --report-format is given.
func writeOutputs(cmd *cobra.Command, cfg *config.Config, report *models.Report) error {
	if !cfg.Output.Quiet || cfg.Output.Format == "json" {
		formatter, err := output.NewFormatter(cfg.Output.Format)
		if err != nil {
			return err
		}
		if err := formatter.Write(os.Stdout, report); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	switch {
	case scanFlags.Report != "":
		if err := output.WriteReport(report, scanFlags.Report, cfg.Output.ReportFormat); err != nil {
			return fmt.Errorf("failed to write duplicates report: %w", err)
		}
		if !cfg.Output.Quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", scanFlags.Report)
		}
	case cmd.Flags().Changed("report-format"):
		if err := output.RenderReport(os.Stdout, report, cfg.Output.ReportFormat); err != nil {
			return fmt.Errorf("failed to write duplicates report: %w", err)
		}
	}

	return nil
}

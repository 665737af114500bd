package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/dupnorris/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"log debug messages to stderr",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress progress and non-error output",
	)
}

// ScanFlags holds the flags shared by the scan and compare commands
type ScanFlags struct {
	Parallel          int
	Hash              string
	FingerprintWindow int
	BufferSize        int
	MinSize           string
	Exclude           []string
	NoExclude         bool
	Bandwidth         string
	Output            string
	Report            string
	ReportFormat      string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var scanFlags ScanFlags

// addScanFlags registers the scan flags on cmd
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&scanFlags.Parallel, "parallel", "p", 0, "number of parallel readers (default: one per CPU)")
	cmd.Flags().StringVar(&scanFlags.Hash, "hash", "", "confirmation digest: blake3, sha256")
	cmd.Flags().IntVar(&scanFlags.FingerprintWindow, "fingerprint-window", 0, "leading bytes fingerprinted per file (default: 4096)")
	cmd.Flags().IntVar(&scanFlags.BufferSize, "buffer-size", 0, "read chunk size for full digests (default: 8192)")
	cmd.Flags().StringVar(&scanFlags.MinSize, "min-size", "", "ignore files smaller than this (e.g., \"1MB\")")
	cmd.Flags().StringSliceVar(&scanFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().BoolVar(&scanFlags.NoExclude, "no-exclude", false, "ignore exclude patterns from the config file")
	cmd.Flags().StringVarP(&scanFlags.Bandwidth, "bandwidth", "b", "", "read bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringVarP(&scanFlags.Output, "output", "o", "", "console output format: human, json")
	cmd.Flags().StringVar(&scanFlags.Report, "report", "", "write the duplicates report to file")
	cmd.Flags().StringVar(&scanFlags.ReportFormat, "report-format", "", "report format: markdown, html, json")

	// Logging flags
	cmd.Flags().StringVar(&scanFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&scanFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&scanFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

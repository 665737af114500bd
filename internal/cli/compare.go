package cli

import (
	"github.com/spf13/cobra"

	"github.com/sdejongh/dupnorris/pkg/output"
)

// defaultCompareReport is where compare writes its report unless --report
// says otherwise
const defaultCompareReport = "duplicates_report.html"

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <dir1> <dir2>",
		Short: "Find files duplicated across two directories",
		Long: `Scan two distinct directories for duplicate files and write an HTML
report. This is equivalent to scan with two roots and
--report duplicates_report.html --report-format html.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := validateRoots(args)
			if err != nil {
				return err
			}
			if err := validateDistinctRoots(roots); err != nil {
				return err
			}
			if scanFlags.Report == "" {
				scanFlags.Report = defaultCompareReport
			}
			if scanFlags.ReportFormat == "" {
				scanFlags.ReportFormat = output.ReportHTML
			}
			return runScan(cmd, roots)
		},
	}

	// Flag variables are shared with scan, report defaults are set in RunE
	addScanFlags(cmd)

	return cmd
}

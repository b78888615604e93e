package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/casefile/internal/analysis"
	"github.com/ppiankov/casefile/internal/store"
)

var (
	reportFormat    string
	reportMaxErrors int
	reportXLSX      string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [results.json]",
	Short: "Print grouped counts for an extraction result file",
	Long: `Report loads a result file written by extract and prints:
- Overall totals and a few failure examples
- Counts by year and month, chronologically
- Counts by city, occurrence type and district, most frequent first
- Counts by city and year

Only successful records are counted in the groupings. Missing values are
reported as Unknown.

Example:
  casefile report
  casefile report cases.json --format json
  casefile report cases.json --xlsx cases.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("output.path")
		if len(args) == 1 {
			path = args[0]
		}
		return runReport(cmd.OutOrStdout(), path, reportFormat, reportMaxErrors, reportXLSX)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "output format (text, json)")
	reportCmd.Flags().IntVar(&reportMaxErrors, "max-errors", 5, "failure examples to show (-1 = all)")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "also write the report as an Excel workbook")
}

func runReport(w io.Writer, path, format string, maxErrors int, xlsxPath string) error {
	records, err := store.LoadJSON(path)
	if err != nil {
		return err
	}

	report := analysis.Build(records, maxErrors)

	switch format {
	case "text", "":
		err = analysis.RenderText(w, report)
	case "json":
		err = analysis.RenderJSON(w, report)
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if xlsxPath != "" {
		if err := analysis.WriteXLSX(xlsxPath, report); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	return nil
}

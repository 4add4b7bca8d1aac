package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sqp-cli/internal/report"
)

var (
	ingestPaths []string
	ingestOut   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load SQP report files into a normalized, metric-complete dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		files, err := readInputFiles(ingestPaths)
		if err != nil {
			return err
		}

		sess, err := newSession()
		if err != nil {
			return err
		}

		table, err := sess.Ingest(files)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		stats := report.Summary(table)
		fmt.Printf("Queries:          %d\n", stats.TotalQueries)
		fmt.Printf("Impressions:      %.0f\n", stats.TotalImpressions)
		fmt.Printf("Clicks:           %.0f\n", stats.TotalClicks)
		fmt.Printf("Orders:           %.0f\n", stats.TotalOrders)
		fmt.Printf("Sales:            %.2f\n", stats.TotalSales)
		fmt.Printf("Avg CTR:          %.2f%%\n", stats.AvgCTR)
		fmt.Printf("Avg Conv. Rate:   %.2f%%\n", stats.AvgConversionRate)

		if ingestOut != "" {
			if err := writeFile(ingestOut, func(w io.Writer) error {
				return report.WriteTable(w, table)
			}); err != nil {
				return err
			}
			zap.L().Info("ingest: wrote normalized dataset",
				zap.String("out", ingestOut),
				zap.Int("rows", table.Len()),
			)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringArrayVar(&ingestPaths, "file", nil, "report file to load (repeatable; .csv/.xlsx/.xls)")
	ingestCmd.Flags().StringVar(&ingestOut, "out", "", "write the cleaned dataset as CSV to this path")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sqp-cli/internal/report"
)

var (
	reportPath string
	reportView string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate views over an already-categorized dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		files, err := readInputFiles([]string{reportPath})
		if err != nil {
			return err
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		table, err := sess.Ingest(files)
		if err != nil {
			return eris.Wrap(err, "report: load dataset")
		}

		switch reportView {
		case "aggregate":
			return report.WriteAggregates(os.Stdout, report.Aggregate(table))
		case "opportunities":
			return report.WriteAggregates(os.Stdout, report.Opportunities(report.Aggregate(table)))
		case "distribution":
			return report.WriteDistribution(os.Stdout, report.Distribution(table))
		default:
			return eris.Errorf("unknown view %q (want aggregate, opportunities, or distribution)", reportView)
		}
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportPath, "file", "", "categorized CSV produced by the categorize command")
	reportCmd.Flags().StringVar(&reportView, "view", "aggregate", "view to print: aggregate, opportunities, distribution")
	_ = reportCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(reportCmd)
}

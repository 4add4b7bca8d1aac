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
	categorizePaths    []string
	categorizeOut      string
	categorizeParallel bool
	categorizeBatch    int
	categorizeWorkers  int
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Run the full pipeline: ingest, classify queries, export categorized data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		// Flags override the config file for this invocation.
		if cmd.Flags().Changed("parallel") {
			cfg.Categorize.Parallel = categorizeParallel
		}
		if cmd.Flags().Changed("batch-size") {
			cfg.Categorize.BatchSize = categorizeBatch
		}
		if cmd.Flags().Changed("workers") {
			cfg.Categorize.Workers = categorizeWorkers
		}

		files, err := readInputFiles(categorizePaths)
		if err != nil {
			return err
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		if _, err := sess.Ingest(files); err != nil {
			return eris.Wrap(err, "categorize: ingest")
		}

		sched, err := newScheduler()
		if err != nil {
			return err
		}

		table, err := sess.Categorize(ctx, sched)
		if err != nil {
			return eris.Wrap(err, "categorize")
		}

		dist := report.Distribution(table)
		fmt.Printf("Categorized %d rows into %d categories\n", table.Len(), len(dist))
		for i, d := range dist {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(dist)-i)
				break
			}
			fmt.Printf("  %-40s %d\n", d.Category, d.Count)
		}

		if categorizeOut != "" {
			if err := writeFile(categorizeOut, func(w io.Writer) error {
				return report.WriteTable(w, table)
			}); err != nil {
				return err
			}
			zap.L().Info("categorize: wrote categorized dataset",
				zap.String("out", categorizeOut),
				zap.Int("rows", table.Len()),
			)
		}
		return nil
	},
}

func init() {
	categorizeCmd.Flags().StringArrayVar(&categorizePaths, "file", nil, "report file to load (repeatable; .csv/.xlsx/.xls)")
	categorizeCmd.Flags().StringVar(&categorizeOut, "out", "", "write the categorized dataset as CSV to this path")
	categorizeCmd.Flags().BoolVar(&categorizeParallel, "parallel", true, "dispatch classification batches to a worker pool")
	categorizeCmd.Flags().IntVar(&categorizeBatch, "batch-size", 100, "queries per classification request")
	categorizeCmd.Flags().IntVar(&categorizeWorkers, "workers", 3, "max concurrent classification requests (1-5)")
	_ = categorizeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(categorizeCmd)
}

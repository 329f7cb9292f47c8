package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/penalty-amount/config"
	"github.com/fyerfyer/penalty-amount/internal/metrics"
	"github.com/fyerfyer/penalty-amount/internal/pipeline"
	"github.com/fyerfyer/penalty-amount/internal/repository"
)

var runOpts struct {
	input       string
	fromDB      bool
	resume      bool
	batchSize   int
	concurrency int
	output      string
	checkpoint  string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Batch-process documents and write the result table",
	Example: `  penalty-amount run --input docs.csv
  penalty-amount run --input docs.csv --resume
  penalty-amount run --from-db --concurrency 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runOpts.input == "" && !runOpts.fromDB {
			return fmt.Errorf("either --input or --from-db is required")
		}

		flags := cmd.Flags()
		a, err := loadApp(func(cfg *config.Config) {
			if flags.Changed("resume") {
				cfg.Pipeline.Resume = runOpts.resume
			}
			if flags.Changed("batch-size") {
				cfg.Pipeline.BatchSize = runOpts.batchSize
			}
			if flags.Changed("concurrency") {
				cfg.Pipeline.Concurrency = runOpts.concurrency
			}
			if flags.Changed("output") {
				cfg.Pipeline.Output = runOpts.output
			}
			if flags.Changed("checkpoint") {
				cfg.Pipeline.Checkpoint = runOpts.checkpoint
			}
			if runOpts.fromDB {
				cfg.Database.Enable = true
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()

		agg, err := a.aggregator()
		if err != nil {
			return err
		}
		store, err := a.storage()
		if err != nil {
			return err
		}

		opts := []pipeline.Option{pipeline.WithLogger(a.logger)}
		var src pipeline.Source = pipeline.NewCSVSource(runOpts.input)
		var amounts repository.AmountRepository
		if a.cfg.Database.Enable {
			db, err := a.database()
			if err != nil {
				return err
			}
			amounts = repository.NewAmountRepositoryWithDB(db)
			opts = append(opts, pipeline.WithAmountRepository(amounts))
			if runOpts.fromDB {
				src = pipeline.NewRepositorySource(repository.NewDocumentRepositoryWithDB(db), 0)
			}
		}

		var collector *metrics.Collector
		if a.cfg.Metrics.Enable {
			if collector, err = a.metrics(); err != nil {
				return err
			}
			opts = append(opts, pipeline.WithMetrics(collector))
		}

		summary, runErr := pipeline.New(agg, store, a.pipelineConfig(), opts...).Run(cmd.Context(), src)

		if collector != nil {
			if err := collector.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
				a.logger.WithError(err).Warn("Failed to write metrics textfile")
			}
		}
		if summary != nil {
			printSummary(cmd, summary)
		}
		if amounts != nil && summary != nil && runErr == nil {
			totals, err := amounts.Totals(cmd.Context(), summary.RunID)
			if err != nil {
				a.logger.WithError(err).Warn("Failed to read persisted totals")
			} else {
				printTotals(cmd, totals)
			}
		}
		if runErr != nil {
			if cmd.Context().Err() != nil {
				cmd.PrintErrf("interrupted, resume with --resume (checkpoint: %s)\n", a.cfg.Pipeline.Checkpoint)
			}
			return runErr
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.input, "input", "i", "", "input CSV with id and content columns")
	f.BoolVar(&runOpts.fromDB, "from-db", false, "read documents from the document table instead of a CSV")
	f.BoolVar(&runOpts.resume, "resume", false, "skip documents already present in the checkpoint")
	f.IntVar(&runOpts.batchSize, "batch-size", 14, "documents per extraction call")
	f.IntVar(&runOpts.concurrency, "concurrency", 1, "batches processed in parallel")
	f.StringVar(&runOpts.output, "output", "", "object name of the result table")
	f.StringVar(&runOpts.checkpoint, "checkpoint", "", "object name of the checkpoint")
}

func printSummary(cmd *cobra.Command, s *pipeline.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:               %s\n", s.RunID)
	fmt.Fprintf(out, "documents:         %d (processed %d, skipped %d, failed %d)\n",
		s.Total, s.Processed, s.Skipped, s.Failed)
	fmt.Fprintf(out, "fine_amount:       %.2f\n", s.FineAmount)
	fmt.Fprintf(out, "confiscate_amount: %.2f\n", s.ConfiscateAmount)
	fmt.Fprintf(out, "amount:            %.2f\n", s.Amount)
	if s.Output != "" {
		fmt.Fprintf(out, "output:            %s\n", s.Output)
	}
	fmt.Fprintf(out, "duration:          %s\n", s.Duration)
}

// printTotals 输出本次运行写入数据库的结果汇总，恢复时跳过的行不计入
func printTotals(cmd *cobra.Command, t *repository.Totals) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "db_rows:           %d (failed %d)\n", t.Count, t.Failed)
	fmt.Fprintf(out, "db_amount:         %.2f\n", t.Amount)
}

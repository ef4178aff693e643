package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/evaluate"
	"github.com/urbansense/fleetcover/internal/pipeline"
	"github.com/urbansense/fleetcover/internal/segment"
	"github.com/urbansense/fleetcover/internal/selector"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Select agents maximizing spatiotemporal coverage",
	Long:  "Runs the configured selection strategy over the training partition and scores the selection against the held-out partition. Reads tagged records from the store, or incidence tables exported with the export command.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "pick"))

		strategy, _ := cmd.Flags().GetString("strategy")
		if strategy == "" {
			strategy = cfg.Selection.Strategy
		}
		count, _ := cmd.Flags().GetInt("count")
		if count == 0 {
			count = cfg.Selection.Count
		}
		splitTS, _ := cmd.Flags().GetInt64("split-ts")
		if splitTS == 0 {
			splitTS = cfg.Selection.SplitTS
		}
		metric, _ := cmd.Flags().GetString("metric")
		if metric == "" {
			metric = cfg.Selection.Metric
		}

		sel, err := selector.ForStrategy(strategy, cfg.Selection.Seed)
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			Granularity: cfg.Temporal.GranularitySecs,
			SplitTS:     splitTS,
			Count:       count,
			Metric:      metric,
			Selector:    sel,
		}

		trainPath, _ := cmd.Flags().GetString("train")
		testPath, _ := cmd.Flags().GetString("test")

		// CSV-direct path: selection and evaluation over exported tables.
		if trainPath != "" {
			report, err := pickFromTables(trainPath, testPath, opts)
			if err != nil {
				return err
			}
			return printJSON(report)
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, run, err := pipeline.RunFromStore(ctx, st, strategy, opts)
		if err != nil {
			return err
		}

		log.Info("selection run complete",
			zap.String("run_id", run.ID),
			zap.String("strategy", strategy),
			zap.Int("selected", len(report.Result.SelectedAgents)),
			zap.Float64("coverage_score", report.Result.CoverageScore),
			zap.Bool("exhausted", report.Selection.Exhausted),
		)
		return printJSON(report)
	},
}

// pickFromTables runs selection and evaluation over serialized incidence
// tables, without touching the store.
func pickFromTables(trainPath, testPath string, opts pipeline.Options) (*pipeline.Report, error) {
	trainFile, err := os.Open(trainPath)
	if err != nil {
		return nil, err
	}
	defer trainFile.Close() //nolint:errcheck

	trainTable, err := segment.ReadCSV(trainFile)
	if err != nil {
		return nil, err
	}

	testTable := trainTable
	if testPath != "" {
		testFile, err := os.Open(testPath)
		if err != nil {
			return nil, err
		}
		defer testFile.Close() //nolint:errcheck

		testTable, err = segment.ReadCSV(testFile)
		if err != nil {
			return nil, err
		}
	}

	sel, err := opts.Selector.Select(trainTable, opts.Count)
	if err != nil {
		return nil, err
	}

	result, err := evaluate.New().Evaluate(sel.Agents, testTable, opts.Metric)
	if err != nil {
		return nil, err
	}

	return &pipeline.Report{Result: result, Selection: sel}, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	pickCmd.Flags().String("strategy", "", "selection strategy: greedy, topcount, random (overrides config)")
	pickCmd.Flags().Int("count", 0, "number of agents to select (overrides config)")
	pickCmd.Flags().Int64("split-ts", 0, "train/test split timestamp (overrides config)")
	pickCmd.Flags().String("metric", "", "coverage metric identifier (overrides config)")
	pickCmd.Flags().String("train", "", "training incidence table CSV (bypasses the store)")
	pickCmd.Flags().String("test", "", "test incidence table CSV (defaults to the training table)")
	rootCmd.AddCommand(pickCmd)
}

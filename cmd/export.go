package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/segment"
	"github.com/urbansense/fleetcover/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the incidence table as CSV",
	Long:  "Writes the (agent, stratum, temporal bucket, count) incidence table computed from tagged records, optionally restricted to a temporal range. The CSV can be fed back to pick --train/--test.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "export"))

		out, _ := cmd.Flags().GetString("out")

		var filter store.IncidenceFilter
		if cmd.Flags().Changed("min-temporal") {
			v, _ := cmd.Flags().GetInt64("min-temporal")
			filter.MinTemporalID = &v
		}
		if cmd.Flags().Changed("max-temporal") {
			v, _ := cmd.Flags().GetInt64("max-temporal")
			filter.MaxTemporalID = &v
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		table, err := st.IncidenceTable(ctx, filter)
		if err != nil {
			return err
		}
		if table.NumAgents() == 0 {
			log.Warn("incidence table is empty; did you run tag?")
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", out)
		}
		defer f.Close() //nolint:errcheck

		if err := segment.WriteCSV(f, table); err != nil {
			return err
		}

		log.Info("incidence table exported",
			zap.String("out", out),
			zap.Int("agents", table.NumAgents()),
			zap.Int("segments", table.NumSegments()),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "incidence.csv", "output CSV path")
	exportCmd.Flags().Int64("min-temporal", 0, "only include buckets starting at or after this timestamp")
	exportCmd.Flags().Int64("max-temporal", 0, "only include buckets starting at or before this timestamp")
	rootCmd.AddCommand(exportCmd)
}

package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <records.csv>",
	Short: "Load mobility records into the store",
	Long:  "Reads agent mobility records from CSV (agent_id, latitude, longitude, timestamp), optionally anonymizes agent IDs, and bulk-inserts into the configured store.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "ingest"))

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "ingest: open %s", args[0])
		}
		defer f.Close() //nolint:errcheck

		records, err := ingest.ReadCSV(f)
		if err != nil {
			return err
		}

		anonymize, _ := cmd.Flags().GetBool("anonymize")
		if anonymize || cfg.Ingest.Anonymize {
			var mapping map[int64]int64
			records, mapping = ingest.Anonymize(records, cfg.Ingest.AnonymizeSeed)

			if err := writeMapping(cfg.Ingest.MappingPath, mapping); err != nil {
				return err
			}
			log.Warn("agent ID mapping written; store it somewhere safe",
				zap.String("path", cfg.Ingest.MappingPath),
			)
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		inserted, err := st.InsertRecords(ctx, records)
		if err != nil {
			return err
		}

		log.Info("ingest complete",
			zap.String("file", args[0]),
			zap.Int64("inserted", inserted),
		)
		return nil
	},
}

// writeMapping persists the original-to-anonymized agent ID mapping as JSON.
func writeMapping(path string, mapping map[int64]int64) error {
	out := make(map[string]int64, len(mapping))
	for orig, anon := range mapping {
		out[strconv.FormatInt(orig, 10)] = anon
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal ID mapping")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return eris.Wrapf(err, "ingest: write ID mapping %s", path)
	}
	return nil
}

func init() {
	ingestCmd.Flags().Bool("anonymize", false, "anonymize agent IDs before insert")
	rootCmd.AddCommand(ingestCmd)
}

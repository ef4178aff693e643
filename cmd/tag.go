package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
	"github.com/urbansense/fleetcover/internal/pipeline"
	"github.com/urbansense/fleetcover/internal/stratify"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Compute stratum and temporal IDs for stored records",
	Long:  "Classifies every stored record into its spatial stratum and temporal bucket and writes the tags back to the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "tag"))

		strataPath, _ := cmd.Flags().GetString("strata")

		strata, err := loadStrata(strataPath)
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		updated, err := pipeline.TagStore(ctx, st,
			stratify.NewClassifier(strata), cfg.Temporal.GranularitySecs)
		if err != nil {
			return err
		}

		log.Info("tagging complete",
			zap.String("strata", strataPath),
			zap.Int("strata_count", len(strata)),
			zap.Int64("updated", updated),
		)
		return nil
	},
}

// loadStrata reads a stratification from GeoJSON or, for .shp paths, from an
// ESRI shapefile. Grid strata are generated separately by the grid command.
func loadStrata(path string) ([]model.Stratum, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		custom, err := stratify.LoadShapefile(path)
		if err != nil {
			return nil, err
		}
		return custom.Strata(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tag: read strata %s", path)
	}
	custom, err := stratify.DecodeStrata(data)
	if err != nil {
		return nil, err
	}
	return custom.Strata(), nil
}

func init() {
	tagCmd.Flags().String("strata", "strata.geojson", "stratification file (GeoJSON or .shp)")
	rootCmd.AddCommand(tagCmd)
}

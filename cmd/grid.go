package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/stratify"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Generate grid strata for the area-of-interest",
	Long:  "Tiles the configured bounding box with square cells and writes the stratification as GeoJSON with stratum IDs in feature properties.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := zap.L().With(zap.String("command", "grid"))

		cellKM, _ := cmd.Flags().GetFloat64("cell-km")
		if cellKM == 0 {
			cellKM = cfg.Grid.CellKM
		}
		out, _ := cmd.Flags().GetString("out")

		grid, err := stratify.NewGrid(cellKM,
			cfg.Grid.MinLng, cfg.Grid.MinLat, cfg.Grid.MaxLng, cfg.Grid.MaxLat)
		if err != nil {
			return err
		}

		data, err := stratify.EncodeStrata(grid.Strata())
		if err != nil {
			return err
		}

		if err := os.WriteFile(out, data, 0o644); err != nil {
			return eris.Wrapf(err, "grid: write %s", out)
		}

		log.Info("grid stratification written",
			zap.String("out", out),
			zap.Float64("cell_km", cellKM),
			zap.Int("strata", len(grid.Strata())),
		)
		return nil
	},
}

func init() {
	gridCmd.Flags().Float64("cell-km", 0, "grid cell side length in kilometers (overrides config)")
	gridCmd.Flags().String("out", "strata.geojson", "output GeoJSON path")
	rootCmd.AddCommand(gridCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/config"
	"github.com/urbansense/fleetcover/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fleetcover",
	Short: "Drive-by sensing fleet selection",
	Long:  "Selects a subset of a vehicle fleet whose movement traces maximize spatiotemporal coverage of a region, for planning drive-by sensing deployments.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured persistence backend.
func openStore(cmd *cobra.Command) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(cmd.Context(), cfg.Store.DatabaseURL)
	default:
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

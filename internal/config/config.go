package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Temporal  TemporalConfig  `yaml:"temporal" mapstructure:"temporal"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GridConfig configures grid stratification of the area-of-interest.
type GridConfig struct {
	CellKM float64 `yaml:"cell_km" mapstructure:"cell_km"`
	MinLng float64 `yaml:"min_lng" mapstructure:"min_lng"`
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLng float64 `yaml:"max_lng" mapstructure:"max_lng"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
}

// TemporalConfig configures time bucketing.
type TemporalConfig struct {
	GranularitySecs int64 `yaml:"granularity_secs" mapstructure:"granularity_secs"`
}

// SelectionConfig configures agent selection and evaluation.
type SelectionConfig struct {
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
	Count    int    `yaml:"count" mapstructure:"count"`
	SplitTS  int64  `yaml:"split_ts" mapstructure:"split_ts"`
	Metric   string `yaml:"metric" mapstructure:"metric"`
	Seed     int64  `yaml:"seed" mapstructure:"seed"`
}

// IngestConfig configures record loading.
type IngestConfig struct {
	Anonymize     bool   `yaml:"anonymize" mapstructure:"anonymize"`
	AnonymizeSeed int64  `yaml:"anonymize_seed" mapstructure:"anonymize_seed"`
	MappingPath   string `yaml:"mapping_path" mapstructure:"mapping_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLEETCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fleetcover.db")
	v.SetDefault("grid.cell_km", 1.0)
	v.SetDefault("temporal.granularity_secs", 3600)
	v.SetDefault("selection.strategy", "greedy")
	v.SetDefault("selection.count", 10)
	v.SetDefault("selection.metric", "percentage_coverage")
	v.SetDefault("selection.seed", 42)
	v.SetDefault("ingest.anonymize_seed", 42)
	v.SetDefault("ingest.mapping_path", "mappings.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

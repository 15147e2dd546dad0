// Package config loads the command configuration.
package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/twpayne/go-rastersample"
)

// Config holds the full command configuration.
type Config struct {
	Raster  RasterConfig  `mapstructure:"raster"`
	Sample  SampleConfig  `mapstructure:"sample"`
	DB      DBConfig      `mapstructure:"db"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// RasterConfig configures the DEM. Path is either a single GeoTIFF file or a
// directory of Lambert-93 tiles named with FilenameFormat.
type RasterConfig struct {
	Path           string   `mapstructure:"path"`
	FilenameFormat string   `mapstructure:"filename_format"`
	TileSize       int      `mapstructure:"tile_size"`
	Resolution     float64  `mapstructure:"resolution"`
	CacheSize      int      `mapstructure:"cache_size"`
	Canary         string   `mapstructure:"canary"`
	NoData         *float64 `mapstructure:"nodata"` // Overrides the GeoTIFF no-data value.
	// OriginX and OriginY are a cell corner shared by all tiles.
	OriginX        float64  `mapstructure:"origin_x"`
	OriginY        float64  `mapstructure:"origin_y"`
}

// SampleConfig configures sampling.
type SampleConfig struct {
	Reduction   string  `mapstructure:"reduction"`
	Resampling  string  `mapstructure:"resampling"`
	NoData      float64 `mapstructure:"nodata"`
	Concurrency int     `mapstructure:"concurrency"`
	Column      string  `mapstructure:"column"`
}

// DBConfig configures the PostGIS connection.
type DBConfig struct {
	URL string `mapstructure:"url"`
}

// FetchConfig configures DEM tile downloads.
type FetchConfig struct {
	URL     string  `mapstructure:"url"`
	Pattern string  `mapstructure:"pattern"`
	Rate    float64 `mapstructure:"rate"`
	User    string  `mapstructure:"user"`
	Pass    string  `mapstructure:"password"`
}

// OutputConfig configures GeoJSON map output.
type OutputConfig struct {
	ColorFrom string  `mapstructure:"color_from"`
	ColorTo   string  `mapstructure:"color_to"`
	ColorMin  float64 `mapstructure:"color_min"`
	ColorMax  float64 `mapstructure:"color_max"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from configFile, or from rastersample.yaml in the
// current directory or $HOME/.config/rastersample if configFile is empty, and
// from RASTERSAMPLE_ environment variables. Variables in .env are loaded
// first.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rastersample")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/rastersample")
	}

	v.SetEnvPrefix("RASTERSAMPLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("raster.filename_format", "RGEALTI_FXX_%04d_%04d_MNT_LAMB93_IGN69.tif")
	v.SetDefault("raster.tile_size", 5)
	v.SetDefault("raster.resolution", 5.0)
	v.SetDefault("raster.cache_size", 32)
	v.SetDefault("sample.reduction", "min")
	v.SetDefault("sample.resampling", "nearest")
	v.SetDefault("sample.nodata", float64(rastersample.DefaultNoDataValue))
	v.SetDefault("sample.concurrency", 0)
	v.SetDefault("sample.column", "elevation")
	v.SetDefault("fetch.pattern", "*.tif")
	v.SetDefault("fetch.rate", 1.0)
	v.SetDefault("fetch.user", "anonymous")
	v.SetDefault("fetch.password", "anonymous@")
	v.SetDefault("output.color_from", "#2c7bb6")
	v.SetDefault("output.color_to", "#d7191c")
	v.SetDefault("output.color_min", 0.0)
	v.SetDefault("output.color_max", 500.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Bind keys without defaults so that they can be set from the environment.
	for _, key := range []string{"raster.path", "raster.canary", "raster.nodata", "db.url", "fetch.url", "metrics.addr"} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// SamplerConfig returns the sampler configuration described by c.
func (c SampleConfig) SamplerConfig() (rastersample.Config, error) {
	reduction, err := rastersample.ParseReduction(c.Reduction)
	if err != nil {
		return rastersample.Config{}, eris.Wrap(err, "config: sample.reduction")
	}
	resampling, err := rastersample.ParseResampling(c.Resampling)
	if err != nil {
		return rastersample.Config{}, eris.Wrap(err, "config: sample.resampling")
	}
	config := rastersample.DefaultConfig()
	config.NoDataValue = c.NoData
	config.Reduction = reduction
	config.Resampling = resampling
	if c.Concurrency > 0 {
		config.Concurrency = c.Concurrency
	}
	return config, nil
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

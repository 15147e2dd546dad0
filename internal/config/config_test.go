package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, "RGEALTI_FXX_%04d_%04d_MNT_LAMB93_IGN69.tif", cfg.Raster.FilenameFormat)
	assert.Equal(t, 5, cfg.Raster.TileSize)
	assert.Equal(t, 5.0, cfg.Raster.Resolution)
	assert.Equal(t, 32, cfg.Raster.CacheSize)
	assert.Equal(t, "min", cfg.Sample.Reduction)
	assert.Equal(t, "nearest", cfg.Sample.Resampling)
	assert.Equal(t, float64(rastersample.DefaultNoDataValue), cfg.Sample.NoData)
	assert.Equal(t, "elevation", cfg.Sample.Column)
	assert.Equal(t, "*.tif", cfg.Fetch.Pattern)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "", cfg.DB.URL)
}

func TestLoad_YAML(t *testing.T) {
	dir := chdirTemp(t)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "rastersample.yaml"), []byte(`
raster:
  path: /data/rgealti
  tile_size: 1
  origin_x: -2.5
  origin_y: 2.5
sample:
  reduction: avg
  resampling: bilinear
  nodata: -9999
db:
  url: postgres://localhost/bdtopo
log:
  level: debug
  format: json
`), 0o666))

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, "/data/rgealti", cfg.Raster.Path)
	assert.Equal(t, 1, cfg.Raster.TileSize)
	assert.Equal(t, -2.5, cfg.Raster.OriginX)
	assert.Equal(t, 2.5, cfg.Raster.OriginY)
	assert.Equal(t, "avg", cfg.Sample.Reduction)
	assert.Equal(t, -9999.0, cfg.Sample.NoData)
	assert.Equal(t, "postgres://localhost/bdtopo", cfg.DB.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Env(t *testing.T) {
	dir := chdirTemp(t)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RASTERSAMPLE_METRICS_ADDR=:9100\n"), 0o666))
	t.Setenv("RASTERSAMPLE_DB_URL", "postgres://env/db")
	t.Setenv("RASTERSAMPLE_SAMPLE_REDUCTION", "max")
	t.Cleanup(func() { os.Unsetenv("RASTERSAMPLE_METRICS_ADDR") })

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.DB.URL)
	assert.Equal(t, "max", cfg.Sample.Reduction)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "custom.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("sample:\n  column: altitude\n"), 0o666))
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "altitude", cfg.Sample.Column)
}

func TestSampleConfig_SamplerConfig(t *testing.T) {
	config, err := SampleConfig{
		Reduction:   "mean",
		Resampling:  "bilinear",
		NoData:      -1,
		Concurrency: 3,
	}.SamplerConfig()
	assert.NoError(t, err)
	assert.Equal(t, rastersample.ReductionAvg, config.Reduction)
	assert.Equal(t, rastersample.ResamplingBilinear, config.Resampling)
	assert.Equal(t, -1.0, config.NoDataValue)
	assert.Equal(t, 3, config.Concurrency)

	_, err = SampleConfig{Reduction: "median"}.SamplerConfig()
	assert.Error(t, err)
	_, err = SampleConfig{Reduction: "min", Resampling: "cubic"}.SamplerConfig()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	original := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(original) })

	assert.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zap.WarnLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "verbose"}))
}

package config

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

var envKeys = []string{
	"SOILCD_CONFIG", "SOILCD_MODEL_PATH", "SOILCD_SCALER_PATH", "SOILCD_INPUT_PATH",
	"SOILCD_DELIMITER", "SOILCD_ON_PARSE_ERROR", "SOILCD_CSV", "SOILCD_GEOJSON",
	"SOILCD_HISTOGRAM", "SOILCD_STORE", "SOILCD_METRICS_FILE", "SOILCD_LOG_LEVEL",
	"SOILCD_LOG_FORMAT", "SOILCD_BAND_START", "SOILCD_LON_COLUMN", "SOILCD_LAT_COLUMN",
	"SOILCD_TARGET_COLUMN", "SOILCD_HISTOGRAM_BINS", "SOILCD_DN_SCALE", "SOILCD_MISSING",
	"SOILCD_PROGRESS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soilcd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "model/v5_xgb_model.json", cfg.Model.Path)
	assert.Equal(t, "model/scaler_params.json", cfg.Scaler.Path)
	assert.Equal(t, "data_test.csv", cfg.Input.Path)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, 3, cfg.Input.BandStart)
	assert.Equal(t, float32(10000), cfg.Input.DNScale)
	assert.Equal(t, float32(-1), cfg.Model.Missing)
	assert.Equal(t, PolicyAbort, cfg.Input.OnParseError)
	assert.False(t, cfg.SkipParseErrors())
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayers(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, `
model:
  path: yaml-model.json
scaler:
  path: yaml-scaler.json
input:
  delimiter: ";"
  lon_column: 1
  lat_column: 2
log:
  level: debug
`)
	t.Setenv("SOILCD_CONFIG", path)
	t.Setenv("SOILCD_SCALER_PATH", "env-scaler.json")
	t.Setenv("SOILCD_ON_PARSE_ERROR", "skip")

	cfg, err := Load([]string{"-scaler", "flag-scaler.json", "-csv", "out.csv"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "yaml-model.json", cfg.Model.Path)
	assert.Equal(t, "flag-scaler.json", cfg.Scaler.Path)
	assert.Equal(t, "data_test.csv", cfg.Input.Path)
	assert.Equal(t, ";", cfg.Input.Delimiter)
	assert.Equal(t, 1, cfg.Input.LonColumn)
	assert.Equal(t, 2, cfg.Input.LatColumn)
	assert.Equal(t, -1, cfg.Input.TargetColumn)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.SkipParseErrors())
	assert.Equal(t, "out.csv", cfg.Output.CSV)
}

func TestLoadConfigFlagWinsOverEnv(t *testing.T) {
	clearEnv(t)
	envPath := writeYAML(t, "model:\n  path: env.json\n")
	flagPath := writeYAML(t, "model:\n  path: flag.json\n")
	t.Setenv("SOILCD_CONFIG", envPath)

	cfg, err := Load([]string{"-config", flagPath}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "flag.json", cfg.Model.Path)
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, io.Discard)
	require.Error(t, err)
	var missing *errors.MissingFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "config", missing.Role)
}

func TestLoadFlagOutput(t *testing.T) {
	clearEnv(t)

	var out bytes.Buffer
	_, err := Load([]string{"-no-such-flag"}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "flag provided but not defined: -no-such-flag")
	assert.Contains(t, out.String(), "-metrics-file")

	out.Reset()
	_, err = Load([]string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "Usage of soilcd")
}

func TestLoadMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, "model: [unterminated\n")
	_, err := Load([]string{"-config", path}, io.Discard)
	assert.Error(t, err)
}

func TestApplyEnvNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOILCD_BAND_START", "5")
	t.Setenv("SOILCD_DN_SCALE", "1")
	t.Setenv("SOILCD_MISSING", "NaN")
	t.Setenv("SOILCD_PROGRESS", "true")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, 5, cfg.Input.BandStart)
	assert.Equal(t, float32(1), cfg.Input.DNScale)
	assert.True(t, cfg.Model.Missing != cfg.Model.Missing)
	assert.True(t, cfg.Output.Progress)
}

func TestApplyEnvMalformed(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SOILCD_BAND_START", "three"},
		{"SOILCD_DN_SCALE", "ten"},
		{"SOILCD_PROGRESS", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			err := Default().ApplyEnv()
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.key, ve.ParamName)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"empty model path", func(c *Config) { c.Model.Path = "" }, "model.path"},
		{"empty scaler path", func(c *Config) { c.Scaler.Path = " " }, "scaler.path"},
		{"empty input path", func(c *Config) { c.Input.Path = "" }, "input.path"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"unknown policy", func(c *Config) { c.Input.OnParseError = "ignore" }, "input.on_parse_error"},
		{"negative band start", func(c *Config) { c.Input.BandStart = -1 }, "input.band_start"},
		{"long delimiter", func(c *Config) { c.Input.Delimiter = ",," }, "input.delimiter"},
		{"empty delimiter", func(c *Config) { c.Input.Delimiter = "" }, "input.delimiter"},
		{"zero dn scale", func(c *Config) { c.Input.DNScale = 0 }, "input.dn_scale"},
		{"bad lon column", func(c *Config) { c.Input.LonColumn = -2 }, "input.lon_column"},
		{"zero bins", func(c *Config) {
			c.Output.Histogram = "h.png"
			c.Output.HistogramBins = 0
		}, "output.histogram_bins"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SOILCD_MODEL_PATH=dotenv.json\n"), 0o600))
	// godotenv keeps variables that are already set, even when empty.
	require.NoError(t, os.Unsetenv("SOILCD_MODEL_PATH"))

	require.NoError(t, LoadDotEnv(path))
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "dotenv.json", cfg.Model.Path)

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestRowParser(t *testing.T) {
	cfg := Default()
	cfg.Input.Delimiter = "\t"
	cfg.Input.BandStart = 0
	cfg.Input.TargetColumn = 11

	p := cfg.RowParser()
	assert.Equal(t, "\t", p.Delimiter)
	assert.Equal(t, 0, p.BandStart)
	assert.Equal(t, 11, p.TargetColumn)
	assert.Equal(t, -1, p.LonColumn)
}

// Package config assembles the run settings for soilcd.
//
// Values are layered, each layer overriding the previous one:
//
//  1. built-in defaults (the reference file layout)
//  2. a YAML file given by -config or SOILCD_CONFIG
//  3. SOILCD_* environment variables, after an optional .env file is loaded
//  4. command line flags that were set explicitly
package config

import (
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/soilcd/dataset"
	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/pkg/log"
)

// Parse error policies.
const (
	PolicyAbort = "abort"
	PolicySkip  = "skip"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// DefaultEnvFile is loaded when present.
const DefaultEnvFile = ".env"

type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Scaler ScalerConfig `yaml:"scaler"`
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

type ModelConfig struct {
	Path    string  `yaml:"path"`
	Missing float32 `yaml:"missing"`
}

type ScalerConfig struct {
	Path string `yaml:"path"`
}

type InputConfig struct {
	Path         string  `yaml:"path"`
	Delimiter    string  `yaml:"delimiter"`
	BandStart    int     `yaml:"band_start"`
	DNScale      float32 `yaml:"dn_scale"`
	LonColumn    int     `yaml:"lon_column"`
	LatColumn    int     `yaml:"lat_column"`
	TargetColumn int     `yaml:"target_column"`
	OnParseError string  `yaml:"on_parse_error"`
}

type OutputConfig struct {
	CSV           string `yaml:"csv"`
	GeoJSON       string `yaml:"geojson"`
	Histogram     string `yaml:"histogram"`
	HistogramBins int    `yaml:"histogram_bins"`
	Store         string `yaml:"store"`
	MetricsFile   string `yaml:"metrics_file"`
	Progress      bool   `yaml:"progress"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings of the reference deployment.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Path:    "model/v5_xgb_model.json",
			Missing: -1.0,
		},
		Scaler: ScalerConfig{Path: "model/scaler_params.json"},
		Input: InputConfig{
			Path:         "data_test.csv",
			Delimiter:    ",",
			BandStart:    dataset.DefaultBandStart,
			DNScale:      dataset.DefaultDNScale,
			LonColumn:    dataset.NoColumn,
			LatColumn:    dataset.NoColumn,
			TargetColumn: dataset.NoColumn,
			OnParseError: PolicyAbort,
		},
		Output: OutputConfig{HistogramBins: 20},
		Log:    LogConfig{Level: "info", Format: FormatConsole},
	}
}

// Load parses args and builds the layered configuration. Usage and flag
// errors are written to out. The returned Config has been validated.
func Load(args []string, out io.Writer) (*Config, error) {
	flags := NewFlags("soilcd")
	flags.SetOutput(out)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := LoadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}

	cfg := Default()
	path := flags.ConfigPath()
	if path == "" {
		path = os.Getenv("SOILCD_CONFIG")
	}
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	flags.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads path into the environment when it exists. Variables that
// are already set win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	return nil
}

// MergeFile overlays the YAML document at path. Keys absent from the file
// keep their current value.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.NewMissingFileError("config", path, err)
		}
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// ApplyEnv overrides fields from SOILCD_* variables. A malformed numeric or
// boolean value is an error.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("SOILCD_MODEL_PATH", &c.Model.Path)
	str("SOILCD_SCALER_PATH", &c.Scaler.Path)
	str("SOILCD_INPUT_PATH", &c.Input.Path)
	str("SOILCD_DELIMITER", &c.Input.Delimiter)
	str("SOILCD_ON_PARSE_ERROR", &c.Input.OnParseError)
	str("SOILCD_CSV", &c.Output.CSV)
	str("SOILCD_GEOJSON", &c.Output.GeoJSON)
	str("SOILCD_HISTOGRAM", &c.Output.Histogram)
	str("SOILCD_STORE", &c.Output.Store)
	str("SOILCD_METRICS_FILE", &c.Output.MetricsFile)
	str("SOILCD_LOG_LEVEL", &c.Log.Level)
	str("SOILCD_LOG_FORMAT", &c.Log.Format)

	ints := []struct {
		key string
		dst *int
	}{
		{"SOILCD_BAND_START", &c.Input.BandStart},
		{"SOILCD_LON_COLUMN", &c.Input.LonColumn},
		{"SOILCD_LAT_COLUMN", &c.Input.LatColumn},
		{"SOILCD_TARGET_COLUMN", &c.Input.TargetColumn},
		{"SOILCD_HISTOGRAM_BINS", &c.Output.HistogramBins},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.NewValidationError(e.key, "must be an integer", v)
			}
			*e.dst = n
		}
	}

	floats := []struct {
		key string
		dst *float32
	}{
		{"SOILCD_DN_SCALE", &c.Input.DNScale},
		{"SOILCD_MISSING", &c.Model.Missing},
	}
	for _, e := range floats {
		if v := os.Getenv(e.key); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
			if err != nil {
				return errors.NewValidationError(e.key, "must be a number", v)
			}
			*e.dst = float32(f)
		}
	}

	if v := os.Getenv("SOILCD_PROGRESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError("SOILCD_PROGRESS", "must be a boolean", v)
		}
		c.Output.Progress = b
	}
	return nil
}

// Validate reports the first invalid setting as a *errors.ValidationError.
func (c *Config) Validate() error {
	paths := []struct {
		name, value string
	}{
		{"model.path", c.Model.Path},
		{"scaler.path", c.Scaler.Path},
		{"input.path", c.Input.Path},
	}
	for _, p := range paths {
		if strings.TrimSpace(p.value) == "" {
			return errors.NewValidationError(p.name, "must not be empty", p.value)
		}
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatConsole, FormatJSON:
	default:
		return errors.NewValidationError("log.format", "must be console or json", c.Log.Format)
	}

	switch c.Input.OnParseError {
	case PolicyAbort, PolicySkip:
	default:
		return errors.NewValidationError("input.on_parse_error", "must be abort or skip", c.Input.OnParseError)
	}
	if c.Input.BandStart < 0 {
		return errors.NewValidationError("input.band_start", "must not be negative", c.Input.BandStart)
	}
	if len([]rune(c.Input.Delimiter)) != 1 {
		return errors.NewValidationError("input.delimiter", "must be a single character", c.Input.Delimiter)
	}
	if !(c.Input.DNScale > 0) {
		return errors.NewValidationError("input.dn_scale", "must be positive", c.Input.DNScale)
	}
	aux := []struct {
		name  string
		value int
	}{
		{"input.lon_column", c.Input.LonColumn},
		{"input.lat_column", c.Input.LatColumn},
		{"input.target_column", c.Input.TargetColumn},
	}
	for _, a := range aux {
		if a.value < dataset.NoColumn {
			return errors.NewValidationError(a.name, "must be -1 or a column index", a.value)
		}
	}
	if c.Output.Histogram != "" && c.Output.HistogramBins <= 0 {
		return errors.NewValidationError("output.histogram_bins", "must be positive", c.Output.HistogramBins)
	}
	return nil
}

// SkipParseErrors reports whether malformed rows are skipped instead of
// ending the run.
func (c *Config) SkipParseErrors() bool {
	return c.Input.OnParseError == PolicySkip
}

// RowParser builds the parser described by the input section.
func (c *Config) RowParser() *dataset.RowParser {
	p := dataset.NewRowParser()
	p.Delimiter = c.Input.Delimiter
	p.BandStart = c.Input.BandStart
	p.DNScale = c.Input.DNScale
	p.LonColumn = c.Input.LonColumn
	p.LatColumn = c.Input.LatColumn
	p.TargetColumn = c.Input.TargetColumn
	return p
}

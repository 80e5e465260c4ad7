package config

import (
	"flag"
	"io"
)

// Flags holds the command line layer. Only flags given on the command line
// override lower layers.
type Flags struct {
	fs *flag.FlagSet

	config       string
	model        string
	scaler       string
	input        string
	csv          string
	geojson      string
	histogram    string
	store        string
	metricsFile  string
	progress     bool
	logLevel     string
	logFormat    string
	onParseError string
}

// NewFlags defines the soilcd flags on a new FlagSet.
func NewFlags(name string) *Flags {
	f := &Flags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.StringVar(&f.config, "config", "", "YAML configuration file")
	f.fs.StringVar(&f.model, "model", "", "XGBoost JSON model file")
	f.fs.StringVar(&f.scaler, "scaler", "", "standard scaler parameter file")
	f.fs.StringVar(&f.input, "input", "", "delimited input table")
	f.fs.StringVar(&f.csv, "csv", "", "write predictions as CSV")
	f.fs.StringVar(&f.geojson, "geojson", "", "write located predictions as GeoJSON")
	f.fs.StringVar(&f.histogram, "histogram", "", "write a PNG histogram of predictions")
	f.fs.StringVar(&f.store, "store", "", "archive predictions in a bbolt database")
	f.fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus textfile metrics")
	f.fs.BoolVar(&f.progress, "progress", false, "show a progress spinner on stderr")
	f.fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	f.fs.StringVar(&f.logFormat, "log-format", "", "console or json")
	f.fs.StringVar(&f.onParseError, "on-parse-error", "", "abort or skip")
	return f
}

// SetOutput redirects usage and parse errors.
func (f *Flags) SetOutput(w io.Writer) { f.fs.SetOutput(w) }

func (f *Flags) Parse(args []string) error { return f.fs.Parse(args) }

// ConfigPath is the -config value.
func (f *Flags) ConfigPath() string { return f.config }

// Apply copies the explicitly set flags into c.
func (f *Flags) Apply(c *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "model":
			c.Model.Path = f.model
		case "scaler":
			c.Scaler.Path = f.scaler
		case "input":
			c.Input.Path = f.input
		case "csv":
			c.Output.CSV = f.csv
		case "geojson":
			c.Output.GeoJSON = f.geojson
		case "histogram":
			c.Output.Histogram = f.histogram
		case "store":
			c.Output.Store = f.store
		case "metrics-file":
			c.Output.MetricsFile = f.metricsFile
		case "progress":
			c.Output.Progress = f.progress
		case "log-level":
			c.Log.Level = f.logLevel
		case "log-format":
			c.Log.Format = f.logFormat
		case "on-parse-error":
			c.Input.OnParseError = f.onParseError
		}
	})
}

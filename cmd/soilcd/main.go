// Command soilcd predicts soil cadmium concentration for every row of a
// Sentinel-2 band table.
//
// Usage:
//
//	soilcd [-config soilcd.yaml] [-model model/v5_xgb_model.json]
//	       [-scaler model/scaler_params.json] [-input data_test.csv]
//	       [-csv out.csv] [-geojson out.geojson] [-histogram cd.png]
//	       [-store runs.db] [-metrics-file soilcd.prom] [-progress]
//	       [-log-level info] [-log-format console|json]
//	       [-on-parse-error abort|skip]
//
// The prediction report goes to stdout and diagnostics to stderr. Any fatal
// condition prints "CRITICAL ERROR: <message>" on stderr and exits with 1.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/YuminosukeSato/soilcd/config"
	"github.com/YuminosukeSato/soilcd/pipeline"
	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/pkg/log"
	"github.com/YuminosukeSato/soilcd/pkg/telemetry"
	"github.com/YuminosukeSato/soilcd/report"
	"github.com/YuminosukeSato/soilcd/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit. It is the only place where an
// error becomes an exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return fatal(stderr, nil, err)
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return fatal(stderr, nil, err)
	}

	reporter, cleanup, err := newReporter(cfg, stdout, stderr, logger)
	if err != nil {
		return fatal(stderr, logger, err)
	}
	defer cleanup()

	opts := pipeline.Options{
		ModelPath:       cfg.Model.Path,
		ScalerPath:      cfg.Scaler.Path,
		InputPath:       cfg.Input.Path,
		Missing:         cfg.Model.Missing,
		Parser:          cfg.RowParser(),
		SkipParseErrors: cfg.SkipParseErrors(),
		Logger:          logger,
		Reporter:        reporter,
	}
	if _, err := pipeline.New(opts).Run(); err != nil {
		return fatal(stderr, logger, err)
	}
	return 0
}

func fatal(stderr io.Writer, logger log.Logger, err error) int {
	if logger != nil {
		logger.Error("prediction task failed", err)
	}
	fmt.Fprintf(stderr, "CRITICAL ERROR: %v\n", err)
	return 1
}

func newLogger(cfg *config.Config, w io.Writer) (log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == config.FormatJSON {
		return log.NewSlogLogger(slog.New(log.NewJSONHandler(w, level))), nil
	}
	return log.NewZerologLogger(w, level), nil
}

// newReporter assembles the configured outputs. The console report is
// always first. cleanup closes what was opened.
func newReporter(cfg *config.Config, stdout, stderr io.Writer, logger log.Logger) (report.Reporter, func(), error) {
	reporters := report.Multi{report.NewConsoleReporter(stdout)}
	cleanup := func() {}

	if cfg.Output.Progress {
		reporters = append(reporters, report.NewProgressReporter(stderr))
	}
	if cfg.Output.CSV != "" {
		reporters = append(reporters, report.NewCSVReporter(cfg.Output.CSV))
	}
	if cfg.Output.GeoJSON != "" {
		reporters = append(reporters, report.NewGeoJSONReporter(cfg.Output.GeoJSON))
	}
	if cfg.Output.Histogram != "" {
		reporters = append(reporters, report.NewHistogramReporter(cfg.Output.Histogram, cfg.Output.HistogramBins))
	}
	if cfg.Input.TargetColumn >= 0 {
		reporters = append(reporters, report.NewEvaluationReporter(logger.With(log.ComponentKey, "evaluation")))
	}
	if cfg.Output.MetricsFile != "" {
		reporters = append(reporters, telemetry.NewReporter(telemetry.New(), cfg.Output.MetricsFile))
	}
	if cfg.Output.Store != "" {
		store, err := storage.Open(cfg.Output.Store)
		if err != nil {
			return nil, nil, err
		}
		reporters = append(reporters, storage.NewReporter(store, storage.DefaultBatchSize))
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing prediction store", err, log.PathKey, cfg.Output.Store)
			}
		}
	}
	return reporters, cleanup, nil
}

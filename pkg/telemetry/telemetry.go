// Package telemetry records batch-run metrics with Prometheus client types
// and writes them in the node_exporter textfile format when a run ends.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/report"
)

// Metrics holds the run metrics.
type Metrics struct {
	RowsPredicted prometheus.Counter     // rows that produced a prediction
	RowsSkipped   *prometheus.CounterVec // skipped rows by reason
	PredictedCd   prometheus.Histogram   // predicted concentrations in mg/kg
	RunDuration   prometheus.Gauge       // wall time of the last run
	LastSuccess   prometheus.Gauge       // unix time of the last finished run

	gatherer prometheus.Gatherer
}

// New creates metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the metrics with registerer; gatherer is used
// when writing the textfile.
func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RowsPredicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "soilcd_rows_predicted_total",
			Help: "Number of input rows that produced a prediction",
		}),
		RowsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soilcd_rows_skipped_total",
			Help: "Number of input rows skipped, by reason",
		}, []string{"reason"}),
		PredictedCd: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soilcd_predicted_cd_mg_kg",
			Help:    "Distribution of predicted cadmium concentration",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soilcd_run_duration_seconds",
			Help: "Wall time of the last prediction run",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soilcd_last_success_timestamp_seconds",
			Help: "Unix time of the last finished prediction run",
		}),
		gatherer: gatherer,
	}
}

// WriteTextfile writes every gathered metric to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return errors.Wrapf(err, "write metrics %s", path)
	}
	return nil
}

// Reporter updates Metrics from run events. When path is set the metrics
// are written there at the end of the run.
type Reporter struct {
	report.Nop
	m    *Metrics
	path string
}

// NewReporter feeds m and writes to path at End when path is not empty.
func NewReporter(m *Metrics, path string) *Reporter {
	return &Reporter{m: m, path: path}
}

func (r *Reporter) Report(p report.Prediction) error {
	r.m.RowsPredicted.Inc()
	r.m.PredictedCd.Observe(float64(p.Concentration))
	return nil
}

func (r *Reporter) Skip(s report.Skip) error {
	r.m.RowsSkipped.WithLabelValues(s.Reason).Inc()
	return nil
}

func (r *Reporter) End(s report.Summary) error {
	r.m.RunDuration.Set(s.Duration.Seconds())
	r.m.LastSuccess.SetToCurrentTime()
	if r.path == "" {
		return nil
	}
	return r.m.WriteTextfile(r.path)
}

package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilcd/report"
)

func TestReporterCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, registry)
	r := NewReporter(m, "")

	require.NoError(t, r.Begin(report.RunInfo{}))
	require.NoError(t, r.Report(report.Prediction{Row: 1, Concentration: 0.2}))
	require.NoError(t, r.Report(report.Prediction{Row: 2, Concentration: 0.4}))
	require.NoError(t, r.Skip(report.Skip{Reason: "short"}))
	require.NoError(t, r.Skip(report.Skip{Reason: "short"}))
	require.NoError(t, r.Skip(report.Skip{Reason: "empty"}))
	require.NoError(t, r.End(report.Summary{Duration: 1500 * time.Millisecond}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsPredicted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("short")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("empty")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RunDuration))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.PredictedCd))
}

func TestReporterWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soilcd.prom")
	m := New()
	r := NewReporter(m, path)

	require.NoError(t, r.Report(report.Prediction{Row: 1, Concentration: 0.3}))
	require.NoError(t, r.End(report.Summary{Duration: time.Second}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "soilcd_rows_predicted_total 1"), text)
	assert.Contains(t, text, "soilcd_predicted_cd_mg_kg_bucket")
	assert.Contains(t, text, "soilcd_run_duration_seconds 1")
}

func TestWriteTextfileError(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}

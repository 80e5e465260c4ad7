package storage

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilcd/report"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "predictions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "p.db"))
	assert.Error(t, err)
}

func TestStoreClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "p.db"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestReporterArchivesRun(t *testing.T) {
	s := openStore(t)
	r := NewReporter(s, 2)
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return finished }

	info := report.RunInfo{RunID: "run-1", ModelPath: "model/v5_xgb_model.json", Objective: "reg:squarederror", Started: finished.Add(-time.Minute)}
	require.NoError(t, r.Begin(info))
	for i := 1; i <= 5; i++ {
		require.NoError(t, r.Report(report.Prediction{Row: i, Line: i + 1, Concentration: float32(i) / 10}))
	}
	require.NoError(t, r.Skip(report.Skip{Line: 9, Reason: "short"}))
	require.NoError(t, r.End(report.Summary{RunID: "run-1", Predicted: 5, Skipped: 1}))

	preds, err := s.Predictions("run-1")
	require.NoError(t, err)
	require.Len(t, preds, 5)
	for i, p := range preds {
		assert.Equal(t, i+1, p.Row)
		assert.Equal(t, float32(i+1)/10, p.Concentration)
	}

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, 5, runs[0].Predicted)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.True(t, runs[0].Finished.Equal(finished))
}

func TestRowKeysSortNumerically(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.BeginRun(report.RunInfo{RunID: "r"}))

	var preds []report.Prediction
	for _, row := range []int{10, 2, 100, 1} {
		preds = append(preds, report.Prediction{Row: row})
	}
	require.NoError(t, s.PutPredictions("r", preds))

	got, err := s.Predictions("r")
	require.NoError(t, err)
	var rows []int
	for _, p := range got {
		rows = append(rows, p.Row)
	}
	assert.Equal(t, []int{1, 2, 10, 100}, rows)
}

func TestOverflowedPredictionArchived(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.BeginRun(report.RunInfo{RunID: "big"}))
	require.NoError(t, s.PutPredictions("big", []report.Prediction{
		{Row: 1, RawScore: 89, Concentration: float32(math.Inf(1))},
		{Row: 2, RawScore: -110},
	}))

	got, err := s.Predictions("big")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, math.IsInf(float64(got[0].Concentration), 1))
	assert.Equal(t, float32(89), got[0].RawScore)
	assert.Equal(t, float32(0), got[1].Concentration)
}

func TestStoreErrors(t *testing.T) {
	s := openStore(t)

	_, err := s.Predictions("nope")
	assert.Error(t, err)
	assert.Error(t, s.PutPredictions("nope", []report.Prediction{{Row: 1}}))
	assert.Error(t, s.FinishRun(report.Summary{RunID: "nope"}, time.Now()))

	require.NoError(t, s.BeginRun(report.RunInfo{RunID: "dup"}))
	assert.Error(t, s.BeginRun(report.RunInfo{RunID: "dup"}))
}

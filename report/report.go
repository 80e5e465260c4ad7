// Package report delivers prediction results to their destinations: the
// console report, export files, the progress display and evaluation.
package report

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// RunInfo describes a run at its start.
type RunInfo struct {
	RunID      string
	ModelPath  string
	ScalerPath string
	InputPath  string
	Objective  string
	Trees      int
	Started    time.Time
}

// Prediction is one scored row.
type Prediction struct {
	// Row counts successful predictions from 1.
	Row int `json:"row"`
	// Line is the input line the row came from.
	Line int `json:"line"`
	// RawScore is the model output before the inverse log transform.
	RawScore float32 `json:"raw_score"`
	// Concentration is exp(RawScore) in mg/kg.
	Concentration float32 `json:"cd_mg_kg"`

	Lon         float64 `json:"lon,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	HasLocation bool    `json:"has_location,omitempty"`

	Observed    float64 `json:"observed,omitempty"`
	HasObserved bool    `json:"has_observed,omitempty"`
}

// predictionFields has the fields of Prediction without its JSON methods.
type predictionFields Prediction

// MarshalJSON encodes non-finite scores as "inf", "-inf" or "nan".
func (p Prediction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		predictionFields
		RawScore      jsonFloat `json:"raw_score"`
		Concentration jsonFloat `json:"cd_mg_kg"`
	}{predictionFields(p), jsonFloat(p.RawScore), jsonFloat(p.Concentration)})
}

func (p *Prediction) UnmarshalJSON(data []byte) error {
	aux := struct {
		*predictionFields
		RawScore      jsonFloat `json:"raw_score"`
		Concentration jsonFloat `json:"cd_mg_kg"`
	}{predictionFields: (*predictionFields)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.RawScore = float32(aux.RawScore)
	p.Concentration = float32(aux.Concentration)
	return nil
}

type jsonFloat float32

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte(strconv.Quote(formatNonFinite(v))), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 32), nil
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		return nil
	case `"inf"`:
		*f = jsonFloat(math.Inf(1))
		return nil
	case `"-inf"`:
		*f = jsonFloat(math.Inf(-1))
		return nil
	case `"nan"`:
		*f = jsonFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 32)
	if err != nil {
		return errors.Wrapf(err, "decode score %s", data)
	}
	*f = jsonFloat(v)
	return nil
}

// formatCd renders a concentration with six decimals, the way C printf
// renders overflowed values.
func formatCd(v float32) string {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return formatNonFinite(f)
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func formatNonFinite(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return "nan"
}

// Skip is an input line that produced no prediction.
type Skip struct {
	Line   int
	Reason string
	Err    error
}

// Summary is produced when a run finishes.
type Summary struct {
	RunID       string
	Lines       int
	Predicted   int
	Skipped     int
	ParseErrors int
	Duration    time.Duration
}

// Reporter receives the events of one run in order: Begin, then any number
// of Report and Skip, then End. End is only called for runs that finish.
type Reporter interface {
	Begin(info RunInfo) error
	Report(p Prediction) error
	Skip(s Skip) error
	End(s Summary) error
}

// Multi fans events out to several reporters in order and stops at the
// first error.
type Multi []Reporter

func (m Multi) Begin(info RunInfo) error {
	for _, r := range m {
		if err := r.Begin(info); err != nil {
			return errors.Wrapf(err, "%T.Begin", r)
		}
	}
	return nil
}

func (m Multi) Report(p Prediction) error {
	for _, r := range m {
		if err := r.Report(p); err != nil {
			return errors.Wrapf(err, "%T.Report", r)
		}
	}
	return nil
}

func (m Multi) Skip(s Skip) error {
	for _, r := range m {
		if err := r.Skip(s); err != nil {
			return errors.Wrapf(err, "%T.Skip", r)
		}
	}
	return nil
}

func (m Multi) End(s Summary) error {
	for _, r := range m {
		if err := r.End(s); err != nil {
			return errors.Wrapf(err, "%T.End", r)
		}
	}
	return nil
}

// Nop ignores every event. Embed it to implement only some methods.
type Nop struct{}

func (Nop) Begin(RunInfo) error { return nil }
func (Nop) Report(Prediction) error { return nil }
func (Nop) Skip(Skip) error { return nil }
func (Nop) End(Summary) error { return nil }

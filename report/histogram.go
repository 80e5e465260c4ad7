package report

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// DefaultHistogramBins is used when no bin count is given.
const DefaultHistogramBins = 20

// HistogramReporter plots the distribution of predicted concentrations.
// The image format follows the file extension (.png, .svg, .pdf).
// Overflowed concentrations are left out of the plot.
type HistogramReporter struct {
	Nop
	path   string
	bins   int
	values plotter.Values
}

// NewHistogramReporter saves the plot to path at End.
func NewHistogramReporter(path string, bins int) *HistogramReporter {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	return &HistogramReporter{path: path, bins: bins}
}

func (h *HistogramReporter) Report(p Prediction) error {
	if v := float64(p.Concentration); math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	h.values = append(h.values, float64(p.Concentration))
	return nil
}

// End writes nothing when no row was predicted.
func (h *HistogramReporter) End(s Summary) error {
	if len(h.values) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Predicted Cd"
	p.X.Label.Text = "Cd (mg/kg)"
	p.Y.Label.Text = "Rows"

	hist, err := plotter.NewHist(h.values, h.bins)
	if err != nil {
		return errors.Wrap(err, "build histogram")
	}
	p.Add(hist)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, h.path); err != nil {
		return errors.Wrapf(err, "save histogram %s", h.path)
	}
	return nil
}

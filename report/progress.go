package report

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressReporter shows a spinner with the number of predicted rows.
type ProgressReporter struct {
	Nop
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewProgressReporter draws on w, normally stderr.
func NewProgressReporter(w io.Writer) *ProgressReporter {
	return &ProgressReporter{w: w}
}

func (p *ProgressReporter) Begin(RunInfo) error {
	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("predicting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return nil
}

func (p *ProgressReporter) Report(Prediction) error {
	if p.bar == nil {
		return nil
	}
	return p.bar.Add(1)
}

func (p *ProgressReporter) End(Summary) error {
	if p.bar == nil {
		return nil
	}
	return p.bar.Finish()
}

package report

import (
	"fmt"
	"io"
)

const consoleRule = "------------------------------------------"

// ConsoleReporter prints the prediction report:
//
//	------------------------------------------
//	  Soil Heavy Metal (Cd) Prediction Result
//	------------------------------------------
//	Row 1 -> Predicted Cd: 0.123456 mg/kg
//	------------------------------------------
//	Prediction task finished.
type ConsoleReporter struct {
	Nop
	w io.Writer
}

// NewConsoleReporter writes to w, normally stdout.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (c *ConsoleReporter) Begin(RunInfo) error {
	_, err := fmt.Fprintf(c.w, "%s\n  Soil Heavy Metal (Cd) Prediction Result \n%s\n", consoleRule, consoleRule)
	return err
}

func (c *ConsoleReporter) Report(p Prediction) error {
	_, err := fmt.Fprintf(c.w, "Row %d -> Predicted Cd: %s mg/kg\n", p.Row, formatCd(p.Concentration))
	return err
}

func (c *ConsoleReporter) End(Summary) error {
	_, err := fmt.Fprintf(c.w, "%s\nPrediction task finished.\n", consoleRule)
	return err
}

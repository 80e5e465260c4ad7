package report

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/soilcd/metrics"
	"github.com/YuminosukeSato/soilcd/pkg/log"
)

// EvaluationReporter compares predictions with the observed column and
// logs regression metrics when the run ends.
type EvaluationReporter struct {
	Nop
	logger    log.Logger
	observed  []float64
	predicted []float64
	result    *metrics.RegressionReport
}

// NewEvaluationReporter logs through logger.
func NewEvaluationReporter(logger log.Logger) *EvaluationReporter {
	return &EvaluationReporter{logger: logger}
}

func (e *EvaluationReporter) Report(p Prediction) error {
	if p.HasObserved {
		e.observed = append(e.observed, p.Observed)
		e.predicted = append(e.predicted, float64(p.Concentration))
	}
	return nil
}

func (e *EvaluationReporter) End(Summary) error {
	n := len(e.observed)
	if n == 0 {
		e.logger.Warn("no observed values in input, evaluation skipped")
		return nil
	}

	r, err := metrics.Evaluate(mat.NewVecDense(n, e.observed), mat.NewVecDense(n, e.predicted))
	if err != nil {
		return err
	}
	e.result = &r

	e.logger.Info("evaluation against observed Cd",
		log.SamplesKey, r.N,
		log.EvalMAEKey, r.MAE,
		log.EvalRMSEKey, r.RMSE,
		log.EvalR2Key, r.R2,
		log.EvalMAPEKey, r.MAPE,
	)
	return nil
}

// Result returns the metrics of the finished run, if any.
func (e *EvaluationReporter) Result() (metrics.RegressionReport, bool) {
	if e.result == nil {
		return metrics.RegressionReport{}, false
	}
	return *e.result, true
}

package xgboost

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// Objective is the learning objective recorded in the model. It determines
// how base_score maps to a margin and how the margin maps to a prediction.
type Objective string

const (
	SquaredError    Objective = "reg:squarederror"
	SquaredLogError Objective = "reg:squaredlogerror"
	AbsoluteError   Objective = "reg:absoluteerror"
	PseudoHuber     Objective = "reg:pseudohubererror"
	RegLogistic     Objective = "reg:logistic"
	BinaryLogistic  Objective = "binary:logistic"
	BinaryLogitRaw  Objective = "binary:logitraw"
	Gamma           Objective = "reg:gamma"
	Tweedie         Objective = "reg:tweedie"
	Poisson         Objective = "count:poisson"

	// legacyLinear is the pre-1.0 name of reg:squarederror.
	legacyLinear Objective = "reg:linear"
)

type linkKind int

const (
	linkIdentity linkKind = iota
	linkLogit
	linkLog
)

// link returns the base-score link and the prediction transform.
func (o Objective) link() (margin, transform linkKind, ok bool) {
	switch o {
	case SquaredError, legacyLinear, SquaredLogError, AbsoluteError, PseudoHuber:
		return linkIdentity, linkIdentity, true
	case RegLogistic, BinaryLogistic:
		return linkLogit, linkLogit, true
	case BinaryLogitRaw:
		return linkLogit, linkIdentity, true
	case Gamma, Tweedie, Poisson:
		return linkLog, linkLog, true
	}
	return 0, 0, false
}

// Supported reports whether predictions for o can be computed.
func (o Objective) Supported() bool {
	_, _, ok := o.link()
	return ok
}

// ProbToMargin converts the saved base_score into the margin every tree
// output is added to.
func (o Objective) ProbToMargin(base float32) (float32, error) {
	margin, _, ok := o.link()
	if !ok {
		return 0, errors.NewModelError("xgboost.ProbToMargin", fmt.Sprintf("unsupported objective %q", o), errors.ErrNotImplemented)
	}
	switch margin {
	case linkLogit:
		if !(base > 0 && base < 1) {
			return 0, errors.NewValidationError("base_score", "must be in (0, 1) for "+string(o), base)
		}
		return float32(-math.Log(1/float64(base) - 1)), nil
	case linkLog:
		if !(base > 0) {
			return 0, errors.NewValidationError("base_score", "must be positive for "+string(o), base)
		}
		return float32(math.Log(float64(base))), nil
	}
	return base, nil
}

// PredTransform maps a margin to the prediction scale. Unsupported
// objectives are rejected at load time.
func (o Objective) PredTransform(margin float32) float32 {
	_, transform, _ := o.link()
	switch transform {
	case linkLogit:
		return float32(1 / (1 + math.Exp(-float64(margin))))
	case linkLog:
		return float32(math.Exp(float64(margin)))
	}
	return margin
}

func (o Objective) String() string { return string(o) }

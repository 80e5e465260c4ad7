package errors

import (
	"fmt"
	"math"
)

// NumericalInstabilityError is returned when a computed value is NaN or Inf.
type NumericalInstabilityError struct {
	Operation string    // e.g. "inverse_transform", "standardize"
	Values    []float64 // offending values
	Row       int       // 1-based row, 0 when not row related
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("soilcd: numerical instability detected in %s at row %d. Values: [%s]",
		e.Operation, e.Row, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, row int) error {
	return WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Row:       row,
	})
}

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64, row int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, row)
		}
	}
	return nil
}

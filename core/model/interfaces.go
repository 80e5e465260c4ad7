// Package model defines the contracts between the prediction pipeline and
// the components it drives: the feature standardizer and the inference
// engine.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Matrix is a single-row input handle acquired from an InferenceEngine.
// Free releases it and is safe to call more than once.
type Matrix interface {
	// Cols returns the number of features held by the row.
	Cols() int

	// Free releases the handle.
	Free() error
}

// InferenceEngine is a loaded model that scores one row at a time.
type InferenceEngine interface {
	// NewMatrix copies row into an engine-owned handle.
	NewMatrix(row []float32) (Matrix, error)

	// PredictMatrix returns the model output for m with the objective
	// transform applied.
	PredictMatrix(m Matrix) (float32, error)

	// NumFeatures returns the input width the model was trained with.
	NumFeatures() int

	// Close releases the model. Calling it again is a no-op.
	Close() error
}

// Transformer is the batch form of a feature transform whose parameters
// were recorded at training time.
type Transformer interface {
	// Transform applies the transform to every row of X.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// InverseTransform undoes Transform.
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}

// VectorTransformer standardizes a single feature row in place.
type VectorTransformer interface {
	TransformSlice(row []float32) error
}

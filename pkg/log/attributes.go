// Package log defines standard attribute keys for soilcd log records.
//
// Keys follow a hierarchical naming convention ("data.row", "io.path") so
// that JSON logs can be filtered consistently.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the inference backend, e.g. "xgboost".
	ModelNameKey = "model.name"

	// ObjectiveKey records the objective the model was trained with.
	ObjectiveKey = "model.objective"

	// TreesKey records the number of trees in the ensemble.
	TreesKey = "model.trees"

	// OperationKey specifies the operation being performed.
	// Standard values: "load", "predict", "transform", "report"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "pipeline", "xgboost", "config"
	ComponentKey = "ml.component"

	// StateKey records the pipeline state when the record was emitted.
	StateKey = "pipeline.state"

	// RunIDKey identifies one batch run.
	RunIDKey = "run.id"
)

// Data Shape and Position
const (
	// SamplesKey indicates the number of rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features per row.
	FeaturesKey = "data.features"

	// RowKey is the 1-based prediction counter.
	RowKey = "data.row"

	// LineKey is the 1-based line number in the input file.
	LineKey = "data.line"

	// ColumnKey is the 0-based column number in the input file.
	ColumnKey = "data.column"

	// PathKey records a file path.
	PathKey = "io.path"
)

// Performance and Results
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// SkippedKey indicates the number of skipped rows.
	SkippedKey = "preds.skipped"

	// ConcentrationKey records a predicted Cd concentration in mg/kg.
	ConcentrationKey = "preds.cd_mg_kg"
)

// Evaluation against observed concentrations
const (
	EvalMAEKey  = "eval.mae"
	EvalRMSEKey = "eval.rmse"
	EvalR2Key   = "eval.r2"
	EvalMAPEKey = "eval.mape"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationLoad      = "load"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationReport    = "report"

	ErrorMissingFile       = "MISSING_FILE"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorModel             = "MODEL_FAILURE"
)

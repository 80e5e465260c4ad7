// Package soilcd predicts soil cadmium (Cd) concentration from Sentinel-2
// surface reflectance.
//
// A run reads a delimited table of band digital numbers, derives seven
// spectral indices per row, standardizes the 18 features with the training
// scaler and scores them with a gradient boosted tree ensemble stored in
// XGBoost's JSON format. The model predicts log concentration; the reported
// value is exp(score) in mg/kg.
//
// # Packages
//
//   - spectral: band and index schema, index computation
//   - dataset: row parsing and line reading
//   - preprocessing: StandardScaler loaded from scaler_params.json
//   - sklearn/xgboost: pure Go evaluator for XGBoost JSON models
//   - pipeline: the run orchestrator
//   - report, storage, pkg/telemetry: result destinations
//   - metrics: regression metrics against an observed column
//   - config: layered settings (defaults, YAML, environment, flags)
//   - pkg/errors, pkg/log: structured errors and logging
//
// # Quick Start
//
//	go run ./cmd/soilcd -model model/v5_xgb_model.json \
//	    -scaler model/scaler_params.json -input data_test.csv
//
// Output:
//
//	------------------------------------------
//	  Soil Heavy Metal (Cd) Prediction Result
//	------------------------------------------
//	Row 1 -> Predicted Cd: 0.213457 mg/kg
//	...
//	------------------------------------------
//	Prediction task finished.
//
// # Library use
//
//	p := pipeline.New(pipeline.DefaultOptions())
//	defer p.Close()
//	summary, err := p.Run()
package soilcd

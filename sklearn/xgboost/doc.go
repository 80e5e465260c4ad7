// Package xgboost reads gradient boosted tree models saved by XGBoost in its
// JSON format and evaluates them without the native library.
//
// Only single-output tree models are supported: the gbtree and dart
// boosters with numerical splits. Evaluation follows the native CPU
// predictor: rows are float32, a split goes left when the value is strictly
// below the threshold, missing values follow the node's default direction,
// and tree outputs are accumulated in float32 on top of the base margin.
//
// Basic usage:
//
//	bst, err := xgboost.LoadFromFile("model.json")
//	if err != nil {
//		return err
//	}
//	defer bst.Close()
//
//	m, err := bst.NewMatrix(row)
//	if err != nil {
//		return err
//	}
//	defer m.Free()
//	y, err := bst.PredictMatrix(m)
package xgboost

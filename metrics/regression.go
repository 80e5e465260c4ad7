// Package metrics は観測値が入力に含まれる場合に予測精度を評価する回帰指標を提供する。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// checkPair は観測値と予測値の長さを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var diff mat.VecDense
	diff.SubVec(yTrue, yPred)
	return mat.Dot(&diff, &diff) / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var diff mat.VecDense
	diff.SubVec(yTrue, yPred)
	return mat.Norm(&diff, 1) / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := stat.Mean(mat.Col(nil, 0, yTrue), nil)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}

	// すべての観測値が同じ場合は定義できない
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する。観測値が0の要素は除外する
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	valid := 0
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if t == 0 {
			continue
		}
		sum += math.Abs(t-yPred.AtVec(i)) / math.Abs(t)
		valid++
	}
	if valid == 0 {
		return 0, errors.NewValueError("MAPE", "all yTrue values are zero")
	}
	return sum / float64(valid) * 100, nil
}

// RegressionReport はまとめて計算した回帰指標
type RegressionReport struct {
	N    int     `json:"n"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	// R2 は観測値に分散がない場合 NaN
	R2 float64 `json:"r2"`
	// MAPE は観測値がすべて0の場合 NaN
	MAPE float64 `json:"mape"`
}

// Evaluate は MAE、RMSE、R²、MAPE を計算する。
// R² と MAPE が定義できない場合はエラーではなく NaN を返す。
func Evaluate(yTrue, yPred *mat.VecDense) (RegressionReport, error) {
	n, err := checkPair("Evaluate", yTrue, yPred)
	if err != nil {
		return RegressionReport{}, err
	}
	r := RegressionReport{N: n}

	if r.MAE, err = MAE(yTrue, yPred); err != nil {
		return RegressionReport{}, err
	}
	if r.RMSE, err = RMSE(yTrue, yPred); err != nil {
		return RegressionReport{}, err
	}
	if r.R2, err = R2Score(yTrue, yPred); err != nil {
		r.R2 = math.NaN()
	}
	if r.MAPE, err = MAPE(yTrue, yPred); err != nil {
		r.MAPE = math.NaN()
	}
	return r, nil
}

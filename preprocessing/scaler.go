// Package preprocessing は学習時に記録された標準化パラメータを読み込み、
// 特徴量ベクトルへ適用する。
package preprocessing

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/soilcd/core/model"
	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/spectral"
)

var (
	_ model.Transformer       = (*StandardScaler)(nil)
	_ model.VectorTransformer = (*StandardScaler)(nil)
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// 各特徴量から平均を引き、スケールで割る
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量のスケール（標準偏差）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// FeatureNames は学習時の特徴量名（パラメータファイルに含まれる場合のみ）
	FeatureNames []string

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// scalerParams はスケーラーパラメータファイルのJSON表現
type scalerParams struct {
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	FeatureNames []string  `json:"feature_names,omitempty"`
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler, err := preprocessing.LoadStandardScalerFile("scaler_params.json", spectral.DefaultSchema)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// LoadStandardScalerFile はパラメータファイルを開いてスケーラーを読み込む。
// ファイルが存在しない場合は MissingFileError を返す。
func LoadStandardScalerFile(path string, schema spectral.Schema) (*StandardScaler, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewMissingFileError("scaler", path, err)
		}
		return nil, errors.Wrapf(err, "open scaler file %s", path)
	}
	defer f.Close()

	s, err := LoadStandardScaler(f, schema)
	if err != nil {
		return nil, errors.Wrapf(err, "load scaler %s", path)
	}
	return s, nil
}

// LoadStandardScaler は `mean` と `scale` の配列を持つJSONからスケーラーを読み込む。
//
// schema が nil でない場合、配列長と `feature_names`（存在する場合）を検証する。
// スケールが0、または非有限の値を含むパラメータは読み込み時に拒否する。
func LoadStandardScaler(r io.Reader, schema spectral.Schema) (*StandardScaler, error) {
	var p scalerParams
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.NewModelError("LoadStandardScaler", "malformed scaler parameters", err)
	}

	if len(p.Mean) == 0 || len(p.Scale) == 0 {
		return nil, errors.NewModelError("LoadStandardScaler", "mean and scale are required", errors.ErrEmptyData)
	}
	if len(p.Scale) != len(p.Mean) {
		return nil, errors.NewDimensionError("LoadStandardScaler.scale", len(p.Mean), len(p.Scale), 1)
	}
	if schema != nil {
		if len(p.Mean) != schema.Len() {
			return nil, errors.NewDimensionError("LoadStandardScaler.mean", schema.Len(), len(p.Mean), 1)
		}
		if p.FeatureNames != nil {
			if err := schema.Validate("scaler", p.FeatureNames); err != nil {
				return nil, err
			}
		}
	}

	if err := errors.CheckNumericalStability("scaler.mean", p.Mean, 0); err != nil {
		return nil, err
	}
	if err := errors.CheckNumericalStability("scaler.scale", p.Scale, 0); err != nil {
		return nil, err
	}
	for i, v := range p.Scale {
		if float32(v) == 0 {
			return nil, errors.NewValidationError(fmt.Sprintf("scale[%d]", i), "scale must be non-zero", v)
		}
	}

	s := NewStandardScalerDefault()
	s.Mean = p.Mean
	s.Scale = p.Scale
	s.NFeatures = len(p.Mean)
	s.FeatureNames = p.FeatureNames
	s.SetFitted()
	return s, nil
}

// Save はスケーラーのパラメータを LoadStandardScaler で読み込めるJSONとして書き出す
func (s *StandardScaler) Save(w io.Writer) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError("StandardScaler", "Save")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(scalerParams{Mean: s.Mean, Scale: s.Scale, FeatureNames: s.FeatureNames})
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// TransformSlice は1行分の特徴量をその場で標準化する。
//
// 演算はfloat32で行い、平均とスケールはfloat64からfloat32へ丸めてから使う。
// 長さが一致しない場合は切り詰めや補完をせず DimensionError を返す。
func (s *StandardScaler) TransformSlice(row []float32) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError("StandardScaler", "TransformSlice")
	}
	if len(row) != s.NFeatures {
		return errors.NewDimensionError("StandardScaler.TransformSlice", s.NFeatures, len(row), 1)
	}
	for i := range row {
		row[i] = (row[i] - float32(s.Mean[i])) / float32(s.Scale[i])
	}
	return nil
}

// TransformVector は TransformSlice の固定長ベクトル版
func (s *StandardScaler) TransformVector(fv *spectral.FeatureVector) error {
	return s.TransformSlice(fv[:])
}

// InverseTransformVector は InverseTransformSlice の固定長ベクトル版
func (s *StandardScaler) InverseTransformVector(fv *spectral.FeatureVector) error {
	return s.InverseTransformSlice(fv[:])
}

// InverseTransformSlice は TransformSlice の逆変換をその場で行う
func (s *StandardScaler) InverseTransformSlice(row []float32) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError("StandardScaler", "InverseTransformSlice")
	}
	if len(row) != s.NFeatures {
		return errors.NewDimensionError("StandardScaler.InverseTransformSlice", s.NFeatures, len(row), 1)
	}
	for i := range row {
		row[i] = row[i]*float32(s.Scale[i]) + float32(s.Mean[i])
	}
	return nil
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}

package xgboost

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/soilcd/core/model"
	"github.com/YuminosukeSato/soilcd/core/parallel"
	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// DefaultMissing is the value treated as missing in addition to NaN. It
// matches the missing argument conventionally passed when building a
// dense DMatrix from C.
const DefaultMissing float32 = -1.0

// Booster is a loaded tree ensemble. Prediction is safe for concurrent use;
// Close must not race with it.
type Booster struct {
	model.BaseEstimator

	mu           sync.RWMutex
	objective    Objective
	trees        []Tree
	treeWeights  []float32
	baseScore    float32
	baseMargin   float32
	numFeature   int
	featureNames []string
	version      []int
	missing      float32
	rows         sync.Pool
}

var _ model.InferenceEngine = engine{}

type loadOptions struct {
	missing      float32
	featureNames []string
}

// Option configures loading.
type Option func(*loadOptions)

// WithMissing sets the value treated as missing. NaN is always missing.
func WithMissing(v float32) Option {
	return func(o *loadOptions) { o.missing = v }
}

// WithFeatureNames requires the model to have len(names) features and, when
// the model records feature names, requires them to match position by
// position.
func WithFeatureNames(names []string) Option {
	return func(o *loadOptions) { o.featureNames = names }
}

// LoadFromFile reads a JSON model from path.
func LoadFromFile(path string, opts ...Option) (*Booster, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewMissingFileError("model", path, err)
		}
		return nil, errors.NewModelError("xgboost.LoadFromFile", "cannot open model", err)
	}
	defer f.Close()

	b, err := Load(f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", path)
	}
	return b, nil
}

// Load reads a JSON model from r.
func Load(r io.Reader, opts ...Option) (*Booster, error) {
	o := loadOptions{missing: DefaultMissing}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewModelError("xgboost.Load", "cannot read model", err)
	}
	jm, err := ParseJSONModel(data)
	if err != nil {
		return nil, err
	}
	b, err := convertJSONModel(jm)
	if err != nil {
		return nil, err
	}

	if o.featureNames != nil {
		if err := b.checkFeatureNames(o.featureNames); err != nil {
			return nil, err
		}
	}
	b.missing = o.missing
	b.rows.New = func() interface{} {
		buf := make([]float32, b.numFeature)
		return &buf
	}
	b.SetFitted()
	return b, nil
}

func (b *Booster) checkFeatureNames(names []string) error {
	if b.numFeature != len(names) {
		return errors.NewModelError("xgboost.Load", "feature count mismatch",
			errors.NewDimensionError("xgboost.num_feature", len(names), b.numFeature, 1))
	}
	if len(b.featureNames) == 0 {
		return nil
	}
	if len(b.featureNames) != len(names) {
		return errors.NewDimensionError("xgboost.feature_names", len(names), len(b.featureNames), 1)
	}
	for i, want := range names {
		if b.featureNames[i] != want {
			return errors.NewValidationError("model: feature_names",
				fmt.Sprintf("position %d must be %s", i, want), b.featureNames[i])
		}
	}
	return nil
}

// Objective returns the model objective.
func (b *Booster) Objective() Objective { return b.objective }

// NumFeatures returns num_feature.
func (b *Booster) NumFeatures() int { return b.numFeature }

// NumTrees returns the number of trees.
func (b *Booster) NumTrees() int { return len(b.trees) }

// BaseScore returns the saved base_score before the margin link.
func (b *Booster) BaseScore() float32 { return b.baseScore }

// FeatureNames returns the feature names stored in the model, if any.
func (b *Booster) FeatureNames() []string { return b.featureNames }

// Version returns the XGBoost version that wrote the model.
func (b *Booster) Version() []int { return b.version }

// BoosterName returns "gbtree" or "dart".
func (b *Booster) BoosterName() string {
	if b.treeWeights != nil {
		return "dart"
	}
	return "gbtree"
}

// PredictMargin returns the untransformed sum of base margin and tree outputs.
func (b *Booster) PredictMargin(m *DMatrix) (out float32, err error) {
	defer errors.Recover(&err, "xgboost.Booster.PredictMargin")

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.IsFitted() {
		return 0, errors.NewModelError("xgboost.Predict", "booster is closed", errors.ErrClosed)
	}
	if m.owner != b {
		return 0, errors.NewModelError("xgboost.Predict", "matrix belongs to another booster", nil)
	}
	row, err := m.values()
	if err != nil {
		return 0, err
	}

	margin := b.baseMargin
	for i := range b.trees {
		v := b.trees[i].Predict(row, b.missing)
		if b.treeWeights != nil {
			v *= b.treeWeights[i]
		}
		margin += v
	}
	return margin, nil
}

// PredictMatrix returns the prediction for m with the objective transform
// applied.
func (b *Booster) PredictMatrix(m *DMatrix) (float32, error) {
	margin, err := b.PredictMargin(m)
	if err != nil {
		return 0, err
	}
	return b.objective.PredTransform(margin), nil
}

// PredictRow scores a single row, acquiring and freeing a DMatrix.
func (b *Booster) PredictRow(row []float32) (float32, error) {
	m, err := b.NewMatrix(row)
	if err != nil {
		return 0, err
	}
	defer m.Free()
	return b.PredictMatrix(m)
}

// Predict scores every row of X. Values are narrowed to float32 before
// evaluation. Large batches are split across CPU cores.
func (b *Booster) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("xgboost.Predict", "empty data", errors.ErrEmptyData)
	}
	out := mat.NewVecDense(r, nil)
	err := parallel.Chunks(r, parallel.DefaultThreshold, func(start, end int) error {
		row := make([]float32, c)
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				row[j] = float32(X.At(i, j))
			}
			y, err := b.PredictRow(row)
			if err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
			out.SetVec(i, float64(y))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close drops the trees. Later calls are no-ops.
func (b *Booster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Release() {
		b.trees = nil
		b.treeWeights = nil
	}
	return nil
}

// Engine adapts b to model.InferenceEngine.
func (b *Booster) Engine() model.InferenceEngine { return engine{b} }

type engine struct{ *Booster }

func (e engine) NewMatrix(row []float32) (model.Matrix, error) {
	m, err := e.Booster.NewMatrix(row)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (e engine) PredictMatrix(m model.Matrix) (float32, error) {
	dm, ok := m.(*DMatrix)
	if !ok {
		return 0, errors.NewModelError("xgboost.Predict", "matrix was not created by this engine", nil)
	}
	return e.Booster.PredictMatrix(dm)
}

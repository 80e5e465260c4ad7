package xgboost

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/sklearn/xgboost/xgbtest"
)

// twoTrees scores 0.5 + 0.25 + 0.125 = 0.875 when feature 0 < 0.5 and
// 0.5 - 0.5 + 0.125 = 0.125 otherwise. Missing values go right.
func twoTrees() xgbtest.ModelSpec {
	return xgbtest.ModelSpec{
		NumFeature: 3,
		Trees: []xgbtest.TreeSpec{
			xgbtest.Stump(0, 0.5, 0.25, -0.5, false),
			xgbtest.Leaf(0.125),
		},
	}
}

func load(t *testing.T, spec xgbtest.ModelSpec, opts ...Option) *Booster {
	t.Helper()
	b, err := Load(bytes.NewReader(spec.JSON()), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBoosterPredictSquaredError(t *testing.T) {
	b := load(t, twoTrees())

	assert.Equal(t, SquaredError, b.Objective())
	assert.Equal(t, 3, b.NumFeatures())
	assert.Equal(t, 2, b.NumTrees())
	assert.Equal(t, "gbtree", b.BoosterName())
	assert.Equal(t, float32(0.5), b.BaseScore())

	tests := []struct {
		name string
		row  []float32
		want float32
	}{
		{"below threshold", []float32{0.0, 9, 9}, 0.875},
		{"equal goes right", []float32{0.5, 9, 9}, 0.125},
		{"above threshold", []float32{3.0, 9, 9}, 0.125},
		{"negative one is missing", []float32{-1.0, 9, 9}, 0.125},
		{"NaN is missing", []float32{float32(math.NaN()), 9, 9}, 0.125},
		{"other negative", []float32{-0.9, 9, 9}, 0.875},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.PredictRow(tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoosterDefaultLeft(t *testing.T) {
	spec := twoTrees()
	spec.Trees[0] = xgbtest.Stump(0, 0.5, 0.25, -0.5, true)
	spec.BoolFlags = true
	b := load(t, spec)

	got, err := b.PredictRow([]float32{float32(math.NaN()), 0, 0})
	require.NoError(t, err)
	assert.Equal(t, float32(0.875), got)
}

func TestBoosterWithMissing(t *testing.T) {
	b := load(t, twoTrees(), WithMissing(-999))

	got, err := b.PredictRow([]float32{-1.0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, float32(0.875), got, "-1 is an ordinary value once missing is changed")

	got, err = b.PredictRow([]float32{-999, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, float32(0.125), got)
}

func TestBoosterObjectives(t *testing.T) {
	const margin = float32(0.375) // 0.25 + 0.125 on top of a zero base margin

	tests := []struct {
		objective string
		baseScore string
		want      float32
	}{
		{"reg:squarederror", "0", margin},
		{"reg:absoluteerror", "0", margin},
		{"binary:logitraw", "5E-1", margin},
		{"reg:logistic", "5E-1", float32(1 / (1 + math.Exp(-float64(margin))))},
		{"binary:logistic", "[5E-1]", float32(1 / (1 + math.Exp(-float64(margin))))},
		{"reg:gamma", "1", float32(math.Exp(float64(margin)))},
		{"count:poisson", "1E0", float32(math.Exp(float64(margin)))},
		{"reg:tweedie", "[1]", float32(math.Exp(float64(margin)))},
	}
	for _, tt := range tests {
		t.Run(tt.objective, func(t *testing.T) {
			spec := twoTrees()
			spec.Objective = tt.objective
			spec.BaseScore = tt.baseScore
			b := load(t, spec)

			m, err := b.NewMatrix([]float32{0, 0, 0})
			require.NoError(t, err)
			defer m.Free()

			raw, err := b.PredictMargin(m)
			require.NoError(t, err)
			assert.Equal(t, margin, raw)

			got, err := b.PredictMatrix(m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoosterDart(t *testing.T) {
	spec := twoTrees()
	spec.Dart = true
	spec.WeightDrop = []float32{0.5, 2}
	b := load(t, spec)

	assert.Equal(t, "dart", b.BoosterName())
	got, err := b.PredictRow([]float32{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, float32(0.5+0.5*0.25+2*0.125), got)

	spec.WeightDrop = []float32{1}
	_, err = Load(bytes.NewReader(spec.JSON()))
	var modelErr *errors.ModelError
	assert.True(t, errors.As(err, &modelErr))
}

func TestBoosterFeatureNames(t *testing.T) {
	names := []string{"a", "b", "c"}

	spec := twoTrees()
	spec.FeatureNames = names
	b := load(t, spec, WithFeatureNames(names))
	assert.Equal(t, names, b.FeatureNames())

	spec.FeatureNames = []string{"a", "c", "b"}
	_, err := Load(bytes.NewReader(spec.JSON()), WithFeatureNames(names))
	var valErr *errors.ValidationError
	require.True(t, errors.As(err, &valErr), "got %v", err)
	assert.Equal(t, "c", valErr.Value)

	_, err = Load(bytes.NewReader(twoTrees().JSON()), WithFeatureNames([]string{"a", "b"}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr), "got %v", err)

	// A model without recorded names only has its width checked.
	load(t, twoTrees(), WithFeatureNames(names))
}

func TestLoadErrors(t *testing.T) {
	categorical := twoTrees()
	categorical.Trees[0].SplitType = []int{1, 0, 0}

	multiclass := twoTrees()
	multiclass.NumClass = 3

	unknown := twoTrees()
	unknown.Objective = "multi:softprob"

	badChild := twoTrees()
	badChild.Trees[0].Left = []int32{7, -1, -1}

	badFeature := twoTrees()
	badFeature.Trees[0].SplitIndex = []int{3, 0, 0}

	cycle := twoTrees()
	cycle.Trees[0].Right = []int32{1, -1, -1}

	catFeature := twoTrees()
	catFeature.FeatureTypes = []string{"float", "c", "float"}

	badLogit := twoTrees()
	badLogit.Objective = "binary:logistic"
	badLogit.BaseScore = "1"

	tests := []struct {
		name string
		data []byte
	}{
		{"malformed json", []byte(`{"learner": {`)},
		{"categorical split", categorical.JSON()},
		{"categorical feature", catFeature.JSON()},
		{"multiclass", multiclass.JSON()},
		{"unsupported objective", unknown.JSON()},
		{"child out of range", badChild.JSON()},
		{"feature out of range", badFeature.JSON()},
		{"node reachable twice", cycle.JSON()},
		{"logit base score outside (0,1)", badLogit.JSON()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(tt.data))
			require.Error(t, err)
			var modelErr *errors.ModelError
			assert.True(t, errors.As(err, &modelErr), "got %T: %v", err, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "v5_xgb_model.json"))
	var missing *errors.MissingFileError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, "model", missing.Role)

	path := xgbtest.Write(t, dir, twoTrees())
	b, err := LoadFromFile(path)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, []int{2, 0, 3}, b.Version())
}

func TestMatrixLifecycle(t *testing.T) {
	b := load(t, twoTrees())

	_, err := b.NewMatrix([]float32{1, 2})
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)

	m, err := b.NewMatrix([]float32{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Cols())

	require.NoError(t, m.Free())
	require.NoError(t, m.Free(), "second Free is a no-op")
	assert.Equal(t, 0, m.Cols())

	_, err = b.PredictMatrix(m)
	assert.True(t, errors.Is(err, errors.ErrClosed), "got %v", err)

	other := load(t, twoTrees())
	foreign, err := other.NewMatrix([]float32{0, 0, 0})
	require.NoError(t, err)
	defer foreign.Free()
	_, err = b.PredictMatrix(foreign)
	assert.Error(t, err)
}

func TestBoosterClose(t *testing.T) {
	b, err := Load(bytes.NewReader(twoTrees().JSON()))
	require.NoError(t, err)

	m, err := b.NewMatrix([]float32{0, 0, 0})
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.PredictMatrix(m)
	assert.True(t, errors.Is(err, errors.ErrClosed))
	assert.NoError(t, m.Free())

	_, err = b.NewMatrix([]float32{0, 0, 0})
	assert.True(t, errors.Is(err, errors.ErrClosed))
}

func TestEngine(t *testing.T) {
	b := load(t, twoTrees())
	e := b.Engine()

	assert.Equal(t, 3, e.NumFeatures())
	m, err := e.NewMatrix([]float32{0, 0, 0})
	require.NoError(t, err)
	defer m.Free()

	got, err := e.PredictMatrix(m)
	require.NoError(t, err)
	assert.Equal(t, float32(0.875), got)
}

func TestBoosterPredictBatch(t *testing.T) {
	b := load(t, twoTrees())
	X := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		-1, 0, 0,
	})

	got, err := b.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.875, 0.125, 0.125}, got.RawVector().Data)

	_, err = b.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestBoosterPredictLargeBatch(t *testing.T) {
	b := load(t, twoTrees())
	const n = 1000
	X := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%2))
	}

	got, err := b.Predict(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		want := 0.875
		if i%2 == 1 {
			want = 0.125
		}
		require.Equal(t, want, got.AtVec(i), "row %d", i)
	}
}

func TestPredictDeterministic(t *testing.T) {
	b := load(t, twoTrees())
	row := []float32{0.1, 0.2, 0.3}
	first, err := b.PredictRow(row)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		got, err := b.PredictRow(row)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

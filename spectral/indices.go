package spectral

import (
	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// RawBandVector holds reflectance values in Band order.
type RawBandVector [NumBands]float32

// FeatureVector holds the raw bands followed by the derived indices.
type FeatureVector [NumFeatures]float32

const (
	// Epsilon keeps ratio and normalized-difference denominators away from zero.
	Epsilon float32 = 1e-10

	// SAVIL is the soil brightness correction factor of SAVI.
	SAVIL float32 = 0.5
)

// ComputeIndices copies bands into a feature vector and appends the derived
// indices in schema order. Epsilon is added to denominators only, so a zero
// denominator yields a large but finite value.
//
// All arithmetic is float32 so results are bit-identical to the pipeline the
// scaler and model were produced with.
func ComputeIndices(bands RawBandVector) FeatureVector {
	var f FeatureVector
	copy(f[:NumBands], bands[:])

	b8a, b04, b03 := bands[B8A], bands[B04], bands[B03]
	b11, b12 := bands[B11], bands[B12]
	b05, b06 := bands[B05], bands[B06]

	f[NDVI] = (b8a - b04) / (b8a + b04 + Epsilon)
	f[NDWI] = (b03 - b8a) / (b03 + b8a + Epsilon)
	f[SAVI] = (1 + SAVIL) * (b8a - b04) / (b8a + b04 + SAVIL + Epsilon)
	f[CI] = (b04 - b03) / (b04 + b03 + Epsilon)
	f[B11B12Ratio] = b11 / (b12 + Epsilon)
	f[B05B06Ratio] = b05 / (b06 + Epsilon)
	f[B11B12Diff] = b11 - b12

	return f
}

// ComputeIndicesSlice is ComputeIndices for callers holding a slice. Any
// length other than NumBands is rejected.
func ComputeIndicesSlice(bands []float32) ([]float32, error) {
	if len(bands) != NumBands {
		return nil, errors.NewDimensionError("spectral.ComputeIndices", NumBands, len(bands), 1)
	}
	var raw RawBandVector
	copy(raw[:], bands)
	f := ComputeIndices(raw)
	return f[:], nil
}

// Slice returns the vector as a slice sharing its storage.
func (f *FeatureVector) Slice() []float32 {
	return f[:]
}

// Band returns the value of a raw band.
func (f *FeatureVector) Band(b Band) float32 {
	return f[b]
}

// Index returns the value of a derived index.
func (f *FeatureVector) Index(i Index) float32 {
	return f[i]
}

// Package spectral turns Sentinel-2 reflectance bands into the feature
// vector the cadmium model was trained on.
//
// The feature layout is a positional contract with two external training
// artifacts, the scaler parameters and the boosted-tree model. It is
// therefore expressed as a named Schema instead of bare indices, and both
// artifacts are checked against it when they are loaded.
package spectral

import (
	"fmt"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// Band identifies a position in RawBandVector.
type Band int

// Input band order. B08 and B10 are not part of the product; B8A sits last.
const (
	B01 Band = iota
	B02
	B03
	B04
	B05
	B06
	B07
	B09
	B11
	B12
	B8A

	// NumBands is the length of RawBandVector.
	NumBands = int(iota)
)

// Index identifies a derived spectral index, numbered after the bands.
type Index int

// Derived index order as appended by ComputeIndices.
const (
	NDVI Index = iota + Index(NumBands)
	NDWI
	SAVI
	CI
	B11B12Ratio
	B05B06Ratio
	B11B12Diff
)

const (
	// NumIndices is the number of derived indices.
	NumIndices = 7

	// NumFeatures is the length of FeatureVector.
	NumFeatures = NumBands + NumIndices
)

// Kind distinguishes raw bands from derived indices.
type Kind string

const (
	KindBand  Kind = "band"
	KindIndex Kind = "index"
)

// Feature describes one position of the feature vector.
type Feature struct {
	Position int
	Name     string
	Kind     Kind
}

// Schema is the ordered list of feature descriptors.
type Schema []Feature

var bandNames = [NumBands]string{
	"B01", "B02", "B03", "B04", "B05", "B06", "B07", "B09", "B11", "B12", "B8A",
}

var indexNames = [NumIndices]string{
	"NDVI", "NDWI", "SAVI", "CI", "B11_B12_ratio", "B05_B06_ratio", "B11_B12_diff",
}

// DefaultSchema is the layout used at training time.
var DefaultSchema = newSchema()

func newSchema() Schema {
	s := make(Schema, 0, NumFeatures)
	for i, name := range bandNames {
		s = append(s, Feature{Position: i, Name: name, Kind: KindBand})
	}
	for i, name := range indexNames {
		s = append(s, Feature{Position: NumBands + i, Name: name, Kind: KindIndex})
	}
	return s
}

// String returns the band name, e.g. "B8A".
func (b Band) String() string {
	if b < 0 || int(b) >= NumBands {
		return "Band(?)"
	}
	return bandNames[b]
}

// String returns the index name, e.g. "B11_B12_ratio".
func (i Index) String() string {
	p := int(i) - NumBands
	if p < 0 || p >= NumIndices {
		return "Index(?)"
	}
	return indexNames[p]
}

// Names returns the feature names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of features.
func (s Schema) Len() int { return len(s) }

// Validate checks that names, as recorded by a training artifact, match the
// schema position for position. source names the artifact in the error.
func (s Schema) Validate(source string, names []string) error {
	if len(names) != len(s) {
		return errors.NewDimensionError(source+": feature_names", len(s), len(names), 1)
	}
	for i, f := range s {
		if names[i] != f.Name {
			return errors.NewValidationError(
				source+": feature_names",
				fmt.Sprintf("position %d must be %s", i, f.Name),
				names[i],
			)
		}
	}
	return nil
}

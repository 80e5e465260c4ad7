package spectral

import (
	"testing"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

func TestDefaultSchema(t *testing.T) {
	want := []string{
		"B01", "B02", "B03", "B04", "B05", "B06", "B07", "B09", "B11", "B12", "B8A",
		"NDVI", "NDWI", "SAVI", "CI", "B11_B12_ratio", "B05_B06_ratio", "B11_B12_diff",
	}
	got := DefaultSchema.Names()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i], want[i])
		}
		if DefaultSchema[i].Position != i {
			t.Errorf("position field %d = %d", i, DefaultSchema[i].Position)
		}
	}

	if B8A.String() != "B8A" || B11B12Diff.String() != "B11_B12_diff" {
		t.Error("enum names do not match the schema")
	}
	if int(NDVI) != NumBands || int(B11B12Diff) != NumFeatures-1 {
		t.Error("index positions do not follow the bands")
	}
}

func TestSchemaValidate(t *testing.T) {
	names := DefaultSchema.Names()
	if err := DefaultSchema.Validate("scaler", names); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	swapped := append([]string(nil), names...)
	swapped[11], swapped[12] = swapped[12], swapped[11]
	err := DefaultSchema.Validate("scaler", swapped)
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for swapped indices, got %v", err)
	}
	if valErr.Value != "NDWI" {
		t.Errorf("reported value = %v, want NDWI", valErr.Value)
	}

	err = DefaultSchema.Validate("model", names[:17])
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError for short list, got %v", err)
	}
}

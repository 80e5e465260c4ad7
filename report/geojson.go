package report

import (
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// GeoJSONReporter exports located predictions as a FeatureCollection of
// points. Rows without coordinates are left out.
type GeoJSONReporter struct {
	Nop
	path string
	w    io.Writer
	fc   *geojson.FeatureCollection
}

// NewGeoJSONReporter writes to path at End.
func NewGeoJSONReporter(path string) *GeoJSONReporter {
	return &GeoJSONReporter{path: path, fc: geojson.NewFeatureCollection()}
}

// NewGeoJSONWriterReporter writes to w at End.
func NewGeoJSONWriterReporter(w io.Writer) *GeoJSONReporter {
	return &GeoJSONReporter{w: w, fc: geojson.NewFeatureCollection()}
}

func (g *GeoJSONReporter) Report(p Prediction) error {
	if !p.HasLocation {
		return nil
	}
	f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
	f.Properties["row"] = p.Row
	f.Properties["line"] = p.Line
	f.Properties["cd_mg_kg"] = jsonFloat(p.Concentration)
	if p.HasObserved {
		f.Properties["observed"] = p.Observed
	}
	g.fc.Append(f)
	return nil
}

// Features returns the number of features collected so far.
func (g *GeoJSONReporter) Features() int { return len(g.fc.Features) }

func (g *GeoJSONReporter) End(Summary) error {
	data, err := g.fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode geojson")
	}

	if g.path != "" {
		if err := os.WriteFile(g.path, data, 0o644); err != nil {
			return errors.Wrapf(err, "write geojson %s", g.path)
		}
		return nil
	}
	_, err = g.w.Write(data)
	return err
}

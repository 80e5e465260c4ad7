package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

type csvRow struct {
	Row      int    `csv:"row"`
	Line     int    `csv:"line"`
	RawScore string `csv:"raw_score"`
	Cd       string `csv:"cd_mg_kg"`
	Lon      string `csv:"lon"`
	Lat      string `csv:"lat"`
	Observed string `csv:"observed"`
}

// CSVReporter exports predictions as a CSV table when the run ends.
// Location and observed columns are empty for rows without them.
type CSVReporter struct {
	Nop
	path string
	w    io.Writer
	rows []csvRow
}

// NewCSVReporter writes to path, creating or truncating it at End.
func NewCSVReporter(path string) *CSVReporter {
	return &CSVReporter{path: path}
}

// NewCSVWriterReporter writes to w.
func NewCSVWriterReporter(w io.Writer) *CSVReporter {
	return &CSVReporter{w: w}
}

func (c *CSVReporter) Report(p Prediction) error {
	row := csvRow{
		Row:      p.Row,
		Line:     p.Line,
		RawScore: strconv.FormatFloat(float64(p.RawScore), 'g', -1, 32),
		Cd:       formatCd(p.Concentration),
	}
	if p.HasLocation {
		row.Lon = strconv.FormatFloat(p.Lon, 'f', -1, 64)
		row.Lat = strconv.FormatFloat(p.Lat, 'f', -1, 64)
	}
	if p.HasObserved {
		row.Observed = strconv.FormatFloat(p.Observed, 'f', -1, 64)
	}
	c.rows = append(c.rows, row)
	return nil
}

func (c *CSVReporter) End(Summary) (err error) {
	w := c.w
	if c.path != "" {
		f, cerr := os.Create(c.path)
		if cerr != nil {
			return errors.Wrapf(cerr, "create csv %s", c.path)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errors.Wrapf(cerr, "close csv %s", c.path)
			}
		}()
		w = f
	}

	if err := gocsv.MarshalCSV(&c.rows, csv.NewWriter(w)); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

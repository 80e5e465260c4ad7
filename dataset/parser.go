// Package dataset reads the delimited band table the predictions are made
// from.
package dataset

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/spectral"
)

const (
	// DefaultBandStart is the 0-based column holding B01.
	DefaultBandStart = 3

	// DefaultDNScale converts digital numbers to reflectance.
	DefaultDNScale float32 = 10000.0

	// NoColumn disables an auxiliary column.
	NoColumn = -1
)

// SkipReason says why a line produced no prediction.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipEmpty      SkipReason = "empty"
	SkipShort      SkipReason = "short"
	SkipParseError SkipReason = "parse_error"
)

// Record is one parsed data line.
type Record struct {
	// Line is the 1-based line number in the input, header included.
	Line  int
	Bands spectral.RawBandVector

	Lon, Lat    float64
	HasLocation bool

	Observed    float64
	HasObserved bool
}

// RowParser extracts the band columns of a line. The zero value is not
// usable; start from NewRowParser.
type RowParser struct {
	Delimiter string
	BandStart int
	DNScale   float32

	LonColumn    int
	LatColumn    int
	TargetColumn int
}

// NewRowParser returns a parser for comma-separated lines with B01..B8A in
// columns 3 through 13.
func NewRowParser() *RowParser {
	return &RowParser{
		Delimiter:    ",",
		BandStart:    DefaultBandStart,
		DNScale:      DefaultDNScale,
		LonColumn:    NoColumn,
		LatColumn:    NoColumn,
		TargetColumn: NoColumn,
	}
}

// ParseRow converts the band columns of line into reflectance. ok is false
// for lines that should be skipped. A non-numeric band value is a
// *errors.ParseError.
func (p *RowParser) ParseRow(line string) (bands spectral.RawBandVector, ok bool, err error) {
	rec, reason, err := p.ParseRecord(0, line)
	if err != nil || reason != SkipNone {
		return bands, false, err
	}
	return rec.Bands, true, nil
}

// ParseRecord is ParseRow with the line number and auxiliary columns.
//
// Band columns are converted left to right, so a bad value is reported even
// when the line turns out to be too short. Auxiliary columns never fail: a
// value that is absent or not a number leaves the field unset.
func (p *RowParser) ParseRecord(lineNo int, line string) (Record, SkipReason, error) {
	rec := Record{Line: lineNo}
	if line == "" {
		return rec, SkipEmpty, nil
	}

	fields := p.split(line)
	n := 0
	for col := p.BandStart; col < len(fields) && n < spectral.NumBands; col++ {
		tok := strings.TrimSpace(fields[col])
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return rec, SkipParseError, errors.NewParseError(lineNo, col, fields[col], err)
		}
		rec.Bands[n] = float32(v) / p.DNScale
		n++
	}
	if n < spectral.NumBands {
		return rec, SkipShort, nil
	}

	lon, okLon := auxColumn(fields, p.LonColumn)
	lat, okLat := auxColumn(fields, p.LatColumn)
	if okLon && okLat {
		rec.Lon, rec.Lat, rec.HasLocation = lon, lat, true
	}
	rec.Observed, rec.HasObserved = auxColumn(fields, p.TargetColumn)
	return rec, SkipNone, nil
}

// split tokenizes like a delimiter-driven line reader: a trailing delimiter
// does not start an extra empty field.
func (p *RowParser) split(line string) []string {
	fields := strings.Split(line, p.Delimiter)
	if len(fields) > 1 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func auxColumn(fields []string, col int) (float64, bool) {
	if col < 0 || col >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[col]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// LineReader yields the lines of a table with 1-based numbering.
type LineReader struct {
	sc   *bufio.Scanner
	line int
}

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &LineReader{sc: sc}
}

// Next returns the next line and its number. ok is false at end of input or
// on a read error; check Err.
func (r *LineReader) Next() (lineNo int, line string, ok bool) {
	if !r.sc.Scan() {
		return r.line, "", false
	}
	r.line++
	return r.line, r.sc.Text(), true
}

// Err returns the first read error.
func (r *LineReader) Err() error {
	if err := r.sc.Err(); err != nil {
		return errors.Wrapf(err, "read input after line %d", r.line)
	}
	return nil
}

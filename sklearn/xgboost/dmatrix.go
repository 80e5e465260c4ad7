package xgboost

import (
	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// DMatrix is a single-row input handle. Its buffer comes from the owning
// Booster's pool and returns there on Free.
type DMatrix struct {
	owner *Booster
	buf   *[]float32
	freed bool
}

// NewMatrix copies row into a pooled buffer. The width must match the
// model's num_feature.
func (b *Booster) NewMatrix(row []float32) (*DMatrix, error) {
	if b.IsReleased() {
		return nil, errors.NewModelError("xgboost.NewMatrix", "booster is closed", errors.ErrClosed)
	}
	if b.numFeature > 0 && len(row) != b.numFeature {
		return nil, errors.NewDimensionError("xgboost.NewMatrix", b.numFeature, len(row), 1)
	}

	buf := b.rows.Get().(*[]float32)
	if cap(*buf) < len(row) {
		*buf = make([]float32, len(row))
	}
	*buf = (*buf)[:len(row)]
	copy(*buf, row)
	return &DMatrix{owner: b, buf: buf}, nil
}

// Cols returns the row width.
func (m *DMatrix) Cols() int {
	if m.freed {
		return 0
	}
	return len(*m.buf)
}

// Free returns the buffer to the pool. Later calls are no-ops.
func (m *DMatrix) Free() error {
	if m.freed {
		return nil
	}
	m.freed = true
	m.owner.rows.Put(m.buf)
	m.buf = nil
	return nil
}

func (m *DMatrix) values() ([]float32, error) {
	if m.freed {
		return nil, errors.NewModelError("xgboost.DMatrix", "matrix already freed", errors.ErrClosed)
	}
	return *m.buf, nil
}

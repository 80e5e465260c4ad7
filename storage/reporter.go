package storage

import (
	"time"

	"github.com/YuminosukeSato/soilcd/report"
)

// DefaultBatchSize is the number of predictions written per transaction.
const DefaultBatchSize = 256

// Reporter archives a run into a Store.
type Reporter struct {
	report.Nop
	store   *Store
	batch   int
	runID   string
	pending []report.Prediction
	now     func() time.Time
}

// NewReporter writes to store in batches of batchSize predictions.
func NewReporter(store *Store, batchSize int) *Reporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Reporter{store: store, batch: batchSize, now: time.Now}
}

func (r *Reporter) Begin(info report.RunInfo) error {
	r.runID = info.RunID
	return r.store.BeginRun(info)
}

func (r *Reporter) Report(p report.Prediction) error {
	r.pending = append(r.pending, p)
	if len(r.pending) >= r.batch {
		return r.flush()
	}
	return nil
}

func (r *Reporter) End(s report.Summary) error {
	if err := r.flush(); err != nil {
		return err
	}
	return r.store.FinishRun(s, r.now())
}

func (r *Reporter) flush() error {
	if err := r.store.PutPredictions(r.runID, r.pending); err != nil {
		return err
	}
	r.pending = r.pending[:0]
	return nil
}

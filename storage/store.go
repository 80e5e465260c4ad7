// Package storage archives predictions in a BoltDB file so that runs can be
// compared later. Each run gets its own bucket keyed by row number.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/report"
)

const (
	runsBucket      = "runs" // run metadata keyed by run ID
	runBucketPrefix = "run:" // per-run prediction buckets
)

// RunRecord is the metadata stored for one run.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	ModelPath  string    `json:"model_path"`
	ScalerPath string    `json:"scaler_path"`
	InputPath  string    `json:"input_path"`
	Objective  string    `json:"objective"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished,omitempty"`
	Predicted  int       `json:"predicted"`
	Skipped    int       `json:"skipped"`
}

// Store is a prediction archive.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open prediction store %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create runs bucket")
	}
	return &Store{db: db}, nil
}

// Close closes the database. Calling it again is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func runBucket(runID string) []byte {
	return []byte(runBucketPrefix + runID)
}

func rowKey(row int) []byte {
	return []byte(fmt.Sprintf("%010d", row))
}

func putJSON(b *bbolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// BeginRun records the run and creates its prediction bucket. A run ID
// that already exists is rejected.
func (s *Store) BeginRun(info report.RunInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(runsBucket))
		if runs.Get([]byte(info.RunID)) != nil {
			return errors.NewValidationError("run_id", "run already archived", info.RunID)
		}
		if _, err := tx.CreateBucket(runBucket(info.RunID)); err != nil {
			return errors.Wrapf(err, "create bucket for run %s", info.RunID)
		}
		return putJSON(runs, []byte(info.RunID), RunRecord{
			RunID:      info.RunID,
			ModelPath:  info.ModelPath,
			ScalerPath: info.ScalerPath,
			InputPath:  info.InputPath,
			Objective:  info.Objective,
			Started:    info.Started,
		})
	})
}

// PutPredictions stores predictions of a run in one transaction.
func (s *Store) PutPredictions(runID string, preds []report.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runBucket(runID))
		if b == nil {
			return errors.Newf("run %s was not started", runID)
		}
		for _, p := range preds {
			if err := putJSON(b, rowKey(p.Row), p); err != nil {
				return errors.Wrapf(err, "store row %d", p.Row)
			}
		}
		return nil
	})
}

// FinishRun stores the run summary.
func (s *Store) FinishRun(sum report.Summary, finished time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(runsBucket))
		data := runs.Get([]byte(sum.RunID))
		if data == nil {
			return errors.Newf("run %s was not started", sum.RunID)
		}
		var rec RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return errors.Wrapf(err, "decode run %s", sum.RunID)
		}
		rec.Finished = finished
		rec.Predicted = sum.Predicted
		rec.Skipped = sum.Skipped
		return putJSON(runs, []byte(sum.RunID), rec)
	})
}

// Runs lists archived runs in key order.
func (s *Store) Runs() ([]RunRecord, error) {
	var out []RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decode run %s", k)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// Predictions returns the predictions of a run ordered by row.
func (s *Store) Predictions(runID string) ([]report.Prediction, error) {
	var out []report.Prediction
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runBucket(runID))
		if b == nil {
			return errors.Newf("unknown run %s", runID)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var p report.Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrapf(err, "decode row %s", k)
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

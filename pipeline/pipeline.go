// Package pipeline drives a prediction run: load the model and the scaler,
// then score every data line of the input and hand results to a reporter.
//
// The run is single threaded. Each line goes through
//
//	parse -> spectral indices -> standardize -> tree ensemble -> exp
//
// and the concentration is reported with a 1-based row number that counts
// successful predictions only.
package pipeline

import (
	"io"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/soilcd/core/model"
	"github.com/YuminosukeSato/soilcd/dataset"
	"github.com/YuminosukeSato/soilcd/pkg/errors"
	"github.com/YuminosukeSato/soilcd/pkg/log"
	"github.com/YuminosukeSato/soilcd/preprocessing"
	"github.com/YuminosukeSato/soilcd/report"
	"github.com/YuminosukeSato/soilcd/sklearn/xgboost"
	"github.com/YuminosukeSato/soilcd/spectral"
)

// Options configures a Pipeline. Nil fields take the reference defaults;
// start from DefaultOptions to get the reference missing value too.
type Options struct {
	ModelPath  string
	ScalerPath string
	InputPath  string

	// Missing is the engine's missing value marker.
	Missing float32

	Parser *dataset.RowParser
	Schema spectral.Schema

	// SkipParseErrors turns a non-numeric band value into a skipped row
	// instead of a fatal error.
	SkipParseErrors bool

	Logger   log.Logger
	Reporter report.Reporter

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// DefaultOptions returns the reference file layout and missing value.
func DefaultOptions() Options {
	return Options{
		ModelPath:  "model/v5_xgb_model.json",
		ScalerPath: "model/scaler_params.json",
		InputPath:  "data_test.csv",
		Missing:    xgboost.DefaultMissing,
	}
}

// Pipeline owns the inference engine and the scaler for one run.
type Pipeline struct {
	opts   Options
	logger log.Logger
	state  State
	runID  string

	engine    model.InferenceEngine
	scaler    model.VectorTransformer
	objective string
	trees     int
	released  bool
}

// New creates a pipeline with a fresh run ID. Options are not validated
// until the operations that need them run.
func New(opts Options) *Pipeline {
	if opts.Parser == nil {
		opts.Parser = dataset.NewRowParser()
	}
	if opts.Schema == nil {
		opts.Schema = spectral.DefaultSchema
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	id := uuid.NewString()
	return &Pipeline{
		opts:   opts,
		runID:  id,
		logger: opts.Logger.With(log.ComponentKey, "pipeline", log.RunIDKey, id),
	}
}

// RunID identifies this run in logs and in the prediction archive.
func (p *Pipeline) RunID() string { return p.runID }

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state }

func (p *Pipeline) expect(op string, want State) error {
	if p.state != want {
		return errors.NewStateError(op, p.state.String(), want.String())
	}
	return nil
}

// LoadModel reads the XGBoost JSON model at Options.ModelPath. The model must
// take exactly the schema's features.
func (p *Pipeline) LoadModel() error {
	if err := p.expect("LoadModel", Uninitialized); err != nil {
		return err
	}
	start := p.opts.Now()
	b, err := xgboost.LoadFromFile(p.opts.ModelPath,
		xgboost.WithMissing(p.opts.Missing),
		xgboost.WithFeatureNames(p.opts.Schema.Names()),
	)
	if err != nil {
		p.state = Failed
		return err
	}
	p.objective = b.Objective().String()
	p.trees = b.NumTrees()
	p.engine = b.Engine()
	p.state = ModelLoaded

	p.logger.Info("model loaded",
		log.PathKey, p.opts.ModelPath,
		log.ObjectiveKey, p.objective,
		log.TreesKey, p.trees,
		log.FeaturesKey, b.NumFeatures(),
		log.DurationMsKey, p.opts.Now().Sub(start).Milliseconds(),
	)
	return nil
}

// UseEngine installs an already loaded engine in place of LoadModel.
func (p *Pipeline) UseEngine(engine model.InferenceEngine) error {
	if err := p.expect("UseEngine", Uninitialized); err != nil {
		return err
	}
	if n := engine.NumFeatures(); n != p.opts.Schema.Len() {
		p.state = Failed
		return errors.NewDimensionError("pipeline.UseEngine", p.opts.Schema.Len(), n, 1)
	}
	p.engine = engine
	p.state = ModelLoaded
	return nil
}

// LoadScaler reads the standardization parameters at Options.ScalerPath.
func (p *Pipeline) LoadScaler() error {
	if err := p.expect("LoadScaler", ModelLoaded); err != nil {
		return err
	}
	s, err := preprocessing.LoadStandardScalerFile(p.opts.ScalerPath, p.opts.Schema)
	if err != nil {
		p.state = Failed
		return err
	}
	p.scaler = s
	p.state = ScalerLoaded
	p.logger.Info("scaler loaded", log.PathKey, p.opts.ScalerPath, log.FeaturesKey, s.NFeatures)
	return nil
}

// UseScaler installs an already loaded standardizer in place of LoadScaler.
func (p *Pipeline) UseScaler(s model.VectorTransformer) error {
	if err := p.expect("UseScaler", ModelLoaded); err != nil {
		return err
	}
	p.scaler = s
	p.state = ScalerLoaded
	return nil
}

// Stream scores every line of r after the header. On success the engine is
// released, Reporter.End is called and the run summary is returned.
func (p *Pipeline) Stream(r io.Reader) (report.Summary, error) {
	sum := report.Summary{RunID: p.runID}
	if err := p.expect("Stream", ScalerLoaded); err != nil {
		return sum, err
	}
	p.state = Streaming
	started := p.opts.Now()

	info := report.RunInfo{
		RunID:      p.runID,
		ModelPath:  p.opts.ModelPath,
		ScalerPath: p.opts.ScalerPath,
		InputPath:  p.opts.InputPath,
		Objective:  p.objective,
		Trees:      p.trees,
		Started:    started,
	}
	if err := p.opts.Reporter.Begin(info); err != nil {
		return sum, p.fail(err)
	}

	lines := dataset.NewLineReader(r)
	lines.Next() // header

	row := 0
	for {
		lineNo, line, ok := lines.Next()
		if !ok {
			break
		}
		sum.Lines = lineNo

		rec, reason, err := p.opts.Parser.ParseRecord(lineNo, line)
		if err != nil {
			sum.ParseErrors++
			if !p.opts.SkipParseErrors {
				return sum, p.fail(err)
			}
			p.logger.Warn("row skipped", err, log.LineKey, lineNo)
		}
		if reason != dataset.SkipNone {
			sum.Skipped++
			if err == nil {
				p.logger.Debug("row skipped", log.LineKey, lineNo, "reason", string(reason))
			}
			skip := report.Skip{Line: lineNo, Reason: string(reason), Err: err}
			if rerr := p.opts.Reporter.Skip(skip); rerr != nil {
				return sum, p.fail(rerr)
			}
			continue
		}

		pred, err := p.predict(rec, row+1)
		if err != nil {
			return sum, p.fail(err)
		}
		row++
		sum.Predicted = row
		if err := p.opts.Reporter.Report(pred); err != nil {
			return sum, p.fail(err)
		}
	}
	if err := lines.Err(); err != nil {
		return sum, p.fail(err)
	}

	if err := p.release(); err != nil {
		return sum, p.fail(err)
	}
	p.state = Finished
	sum.Duration = p.opts.Now().Sub(started)
	if err := p.opts.Reporter.End(sum); err != nil {
		return sum, err
	}

	p.logger.Info("prediction run finished",
		log.PredsKey, sum.Predicted,
		log.SkippedKey, sum.Skipped,
		"preds.parse_errors", sum.ParseErrors,
		log.SamplesKey, sum.Lines,
		log.DurationMsKey, sum.Duration.Milliseconds(),
	)
	return sum, nil
}

// predict scores one record. row is the number the prediction will carry.
func (p *Pipeline) predict(rec dataset.Record, row int) (report.Prediction, error) {
	fv := spectral.ComputeIndices(rec.Bands)
	if err := p.scaler.TransformSlice(fv[:]); err != nil {
		return report.Prediction{}, err
	}

	raw, err := p.score(fv[:])
	if err != nil {
		return report.Prediction{}, errors.Wrapf(err, "line %d", rec.Line)
	}
	// exp overflows to +Inf above about 88.72 and underflows to 0 below
	// about -103.9. Both are reported as computed.
	cd := float32(math.Exp(float64(raw)))

	return report.Prediction{
		Row:           row,
		Line:          rec.Line,
		RawScore:      raw,
		Concentration: cd,
		Lon:           rec.Lon,
		Lat:           rec.Lat,
		HasLocation:   rec.HasLocation,
		Observed:      rec.Observed,
		HasObserved:   rec.HasObserved,
	}, nil
}

// score runs the engine on one standardized row. The matrix is freed on
// every path.
func (p *Pipeline) score(row []float32) (out float32, err error) {
	m, err := p.engine.NewMatrix(row)
	if err != nil {
		return 0, err
	}
	defer func() {
		if ferr := m.Free(); ferr != nil && err == nil {
			err = ferr
		}
	}()
	return p.engine.PredictMatrix(m)
}

func (p *Pipeline) fail(err error) error {
	p.state = Failed
	return err
}

func (p *Pipeline) release() error {
	if p.released || p.engine == nil {
		return nil
	}
	p.released = true
	return p.engine.Close()
}

// Close releases the engine if the run did not already do so. It is safe
// to call on every exit path.
func (p *Pipeline) Close() error {
	return p.release()
}

// Run drives a complete run over Options.InputPath: load the model and the
// scaler, open the input, stream it and release everything.
func (p *Pipeline) Run() (sum report.Summary, err error) {
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := p.LoadModel(); err != nil {
		return sum, err
	}
	if err := p.LoadScaler(); err != nil {
		return sum, err
	}

	f, err := os.Open(p.opts.InputPath)
	if err != nil {
		p.state = Failed
		if errors.Is(err, fs.ErrNotExist) {
			return sum, errors.NewMissingFileError("input", p.opts.InputPath, err)
		}
		return sum, errors.Wrapf(err, "open input %s", p.opts.InputPath)
	}
	defer f.Close()

	return p.Stream(f)
}

package pricemodel

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"RebarForecast/internal/features"
	"RebarForecast/internal/forest"
	"RebarForecast/internal/metrics"
	"RebarForecast/internal/model"
	"RebarForecast/internal/recorder"
)

// Fitter fits an ensemble on feature rows and prices.
type Fitter interface {
	Fit(x [][]float64, y []float64) (*forest.Ensemble, error)
}

// EnsembleFitter fits with the forest package.
type EnsembleFitter struct {
	Params forest.Params
}

func (f EnsembleFitter) Fit(x [][]float64, y []float64) (*forest.Ensemble, error) {
	return forest.Fit(x, y, f.Params)
}

// Options controls LoadOrTrain.
type Options struct {
	ValidationRatio float64
	Seed            int64
	// ForceRetrain ignores an existing artifact and overwrites it.
	ForceRetrain bool
}

// TrainReport summarises a LoadOrTrain call.
type TrainReport struct {
	RunID          string
	Kind           forest.Kind
	TrainSize      int
	ValidationSize int
	MAE            float64
	Duration       time.Duration
	ArtifactPath   string
	FromCache      bool
}

// Trainer builds models, reusing a persisted artifact when one exists.
type Trainer struct {
	fitter   Fitter
	opts     Options
	recorder recorder.Recorder
	metrics  *metrics.Recorder
	log      zerolog.Logger
}

// NewTrainer creates a Trainer. rec and mr may be nil.
func NewTrainer(fitter Fitter, opts Options, rec recorder.Recorder, mr *metrics.Recorder, log zerolog.Logger) *Trainer {
	if opts.ValidationRatio <= 0 || opts.ValidationRatio >= 1 {
		opts.ValidationRatio = 0.2
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Trainer{fitter: fitter, opts: opts, recorder: rec, metrics: mr, log: log}
}

// LoadOrTrain returns the model stored at artifactPath if present. The
// artifact is trusted as-is; it is not compared with observations. Otherwise
// a model is fitted on observations, validated, persisted and returned.
func (t *Trainer) LoadOrTrain(observations []model.PricePoint, artifactPath string) (*Model, *TrainReport, error) {
	start := time.Now()

	if !t.opts.ForceRetrain {
		exists, err := ArtifactExists(artifactPath)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			m, err := LoadArtifact(artifactPath)
			if err != nil {
				return nil, nil, err
			}
			info := m.Info()
			report := &TrainReport{
				RunID:          info.RunID,
				Kind:           info.Kind,
				TrainSize:      info.TrainSize,
				ValidationSize: info.ValidationSize,
				MAE:            info.MAE,
				Duration:       time.Since(start),
				ArtifactPath:   artifactPath,
				FromCache:      true,
			}
			t.log.Info().Str("path", artifactPath).Str("run_id", info.RunID).Msg("model loaded from artifact")
			t.report(report)
			return m, report, nil
		}
	}

	m, report, err := t.Train(observations)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveArtifact(artifactPath, m); err != nil {
		return nil, nil, err
	}
	report.ArtifactPath = artifactPath
	report.Duration = time.Since(start)
	t.log.Info().Str("path", artifactPath).Float64("mae", report.MAE).Msg("model artifact written")
	t.report(report)
	return m, report, nil
}

// Train fits a model without touching the artifact cache.
func (t *Trainer) Train(observations []model.PricePoint) (*Model, *TrainReport, error) {
	if len(observations) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 observations, got %d", model.ErrInvalidInput, len(observations))
	}

	x := make([][]float64, len(observations))
	y := make([]float64, len(observations))
	for i, p := range observations {
		x[i] = features.Derive(p.Date).Values()
		y[i] = p.Price.InexactFloat64()
	}

	trainIdx, valIdx := Split(len(observations), t.opts.ValidationRatio, t.opts.Seed)
	trainX, trainY := pick(x, y, trainIdx)
	valX, valY := pick(x, y, valIdx)

	started := time.Now()
	e, err := t.fitter.Fit(trainX, trainY)
	if err != nil {
		return nil, nil, fmt.Errorf("fit model: %w", err)
	}

	errs := make([]float64, len(valX))
	for i, row := range valX {
		errs[i] = math.Abs(e.Predict(row) - valY[i])
	}
	mae := stat.Mean(errs, nil)

	info := Info{
		RunID:          uuid.NewString(),
		Kind:           e.Kind,
		TrainedAt:      time.Now().UTC(),
		TrainSize:      len(trainX),
		ValidationSize: len(valX),
		MAE:            mae,
	}
	t.log.Info().
		Str("run_id", info.RunID).
		Str("kind", string(info.Kind)).
		Int("train", info.TrainSize).
		Int("validation", info.ValidationSize).
		Float64("mae", mae).
		Dur("took", time.Since(started)).
		Msg("model fitted")

	return NewModel(e, info), &TrainReport{
		RunID:          info.RunID,
		Kind:           info.Kind,
		TrainSize:      info.TrainSize,
		ValidationSize: info.ValidationSize,
		MAE:            mae,
		Duration:       time.Since(started),
	}, nil
}

func (t *Trainer) report(r *TrainReport) {
	t.metrics.RecordTraining(string(r.Kind), r.MAE, r.Duration.Seconds(), r.FromCache)
	if err := t.recorder.RecordTraining(&recorder.TrainingRun{
		RunID:          r.RunID,
		Kind:           string(r.Kind),
		TrainSize:      r.TrainSize,
		ValidationSize: r.ValidationSize,
		MAE:            r.MAE,
		Duration:       r.Duration,
		ArtifactPath:   r.ArtifactPath,
		FromCache:      r.FromCache,
	}); err != nil {
		t.log.Error().Err(err).Msg("record training run")
	}
}

// Split shuffles 0..n-1 with seed and returns training and validation
// indices. The validation share is rounded up and both parts are non-empty
// for n >= 2.
func Split(n int, ratio float64, seed int64) (trainIdx, valIdx []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nVal := int(math.Ceil(ratio * float64(n)))
	if nVal < 1 {
		nVal = 1
	}
	if nVal >= n {
		nVal = n - 1
	}
	return perm[nVal:], perm[:nVal]
}

func pick(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	px := make([][]float64, len(idx))
	py := make([]float64, len(idx))
	for k, i := range idx {
		px[k] = x[i]
		py[k] = y[i]
	}
	return px, py
}

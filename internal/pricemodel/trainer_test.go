package pricemodel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RebarForecast/internal/features"
	"RebarForecast/internal/forest"
	"RebarForecast/internal/model"
)

type countingFitter struct {
	calls int
	inner Fitter
}

func (c *countingFitter) Fit(x [][]float64, y []float64) (*forest.Ensemble, error) {
	c.calls++
	return c.inner.Fit(x, y)
}

type failingFitter struct{}

func (failingFitter) Fit(_ [][]float64, _ []float64) (*forest.Ensemble, error) {
	return nil, errors.New("boom")
}

func weeklyHistory(n int) []model.PricePoint {
	start := time.Date(2019, time.January, 7, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, n)
	for i := range out {
		d := start.AddDate(0, 0, 7*i)
		out[i] = model.PricePoint{Date: d, Price: decimal.NewFromInt(int64(40000 + 50*i + 500*(int(d.Month())%3)))}
	}
	return out
}

func newTrainer(f Fitter, force bool) *Trainer {
	return NewTrainer(f, Options{Seed: 42, ForceRetrain: force}, nil, nil, zerolog.Nop())
}

func TestLoadOrTrain_ReusesArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "rebar.model")
	spy := &countingFitter{inner: EnsembleFitter{Params: forest.Params{Trees: 10}}}
	tr := newTrainer(spy, false)
	history := weeklyHistory(120)

	first, report, err := tr.LoadOrTrain(history, path)
	require.NoError(t, err)
	assert.False(t, report.FromCache)
	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, 96, report.TrainSize)
	assert.Equal(t, 24, report.ValidationSize)
	assert.Greater(t, report.MAE, 0.0)
	assert.FileExists(t, path)

	second, report, err := tr.LoadOrTrain(history, path)
	require.NoError(t, err)
	assert.True(t, report.FromCache)
	assert.Equal(t, 1, spy.calls, "fit must not run when the artifact exists")
	assert.Equal(t, first.Info().RunID, second.Info().RunID)

	vectors := features.DeriveAll([]time.Time{history[3].Date, history[80].Date})
	a, err := first.Predict(vectors)
	require.NoError(t, err)
	b, err := second.Predict(vectors)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoadOrTrain_IgnoresStaleness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebar.model")
	spy := &countingFitter{inner: EnsembleFitter{Params: forest.Params{Trees: 5}}}
	tr := newTrainer(spy, false)

	_, _, err := tr.LoadOrTrain(weeklyHistory(40), path)
	require.NoError(t, err)
	_, report, err := tr.LoadOrTrain(weeklyHistory(200), path)
	require.NoError(t, err)
	assert.True(t, report.FromCache)
	assert.Equal(t, 32, report.TrainSize)
	assert.Equal(t, 1, spy.calls)
}

func TestLoadOrTrain_ForceRetrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebar.model")
	spy := &countingFitter{inner: EnsembleFitter{Params: forest.Params{Trees: 5}}}

	_, _, err := newTrainer(spy, false).LoadOrTrain(weeklyHistory(40), path)
	require.NoError(t, err)
	_, report, err := newTrainer(spy, true).LoadOrTrain(weeklyHistory(40), path)
	require.NoError(t, err)
	assert.False(t, report.FromCache)
	assert.Equal(t, 2, spy.calls)
}

func TestLoadOrTrain_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := newTrainer(EnsembleFitter{}, false).LoadOrTrain(weeklyHistory(1), filepath.Join(dir, "a.model"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, _, err = newTrainer(failingFitter{}, false).LoadOrTrain(weeklyHistory(10), filepath.Join(dir, "b.model"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "b.model"))

	corrupt := filepath.Join(dir, "corrupt.model")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a model"), 0o644))
	_, _, err = newTrainer(EnsembleFitter{}, false).LoadOrTrain(weeklyHistory(10), corrupt)
	assert.ErrorIs(t, err, model.ErrArtifactIO)
}

func TestPredict(t *testing.T) {
	var nilModel *Model
	_, err := nilModel.Predict([]model.FeatureVector{{Year: 2023, Month: 1, ISOWeek: 1}})
	assert.ErrorIs(t, err, model.ErrModelUnavailable)

	tr := newTrainer(EnsembleFitter{Params: forest.Params{Trees: 5}}, false)
	m, _, err := tr.Train(weeklyHistory(30))
	require.NoError(t, err)

	_, err = m.Predict([]model.FeatureVector{{Year: 2023, Month: 13, ISOWeek: 1}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = m.Predict([]model.FeatureVector{{Year: 2023, Month: 1, ISOWeek: 54}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = m.Predict([]model.FeatureVector{{Year: 2023, Month: 1, ISOWeek: 1, DayOfWeek: 7}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	got, err := m.Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplit(t *testing.T) {
	trainA, valA := Split(10, 0.2, 42)
	trainB, valB := Split(10, 0.2, 42)
	assert.Equal(t, trainA, trainB)
	assert.Equal(t, valA, valB)
	assert.Len(t, valA, 2)
	assert.Len(t, trainA, 8)

	train, val := Split(2, 0.2, 1)
	assert.Len(t, train, 1)
	assert.Len(t, val, 1)

	seen := map[int]bool{}
	for _, i := range append(trainA, valA...) {
		seen[i] = true
	}
	assert.Len(t, seen, 10)
}

func TestSaveArtifact_NilModel(t *testing.T) {
	err := SaveArtifact(filepath.Join(t.TempDir(), "x"), nil)
	assert.ErrorIs(t, err, model.ErrModelUnavailable)
}

func TestLoadOrTrain_RejectsMalformedArtifact(t *testing.T) {
	leaf := forest.Node{Feature: -1, Value: 40000}
	tests := []struct {
		name string
		e    *forest.Ensemble
	}{
		{"empty tree", &forest.Ensemble{Kind: forest.RandomForest, Features: model.FeatureCount, Trees: []forest.Tree{{}}}},
		{"feature out of range", &forest.Ensemble{Kind: forest.RandomForest, Features: model.FeatureCount, Trees: []forest.Tree{
			{Nodes: []forest.Node{{Feature: 9, Left: 1, Right: 2}, leaf, leaf}},
		}}},
		{"self loop", &forest.Ensemble{Kind: forest.RandomForest, Features: model.FeatureCount, Trees: []forest.Tree{
			{Nodes: []forest.Node{{Feature: 0, Left: 0, Right: 1}, leaf}},
		}}},
		{"wrong feature count", &forest.Ensemble{Kind: forest.RandomForest, Features: 2, Trees: []forest.Tree{
			{Nodes: []forest.Node{leaf}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rebar.model")
			require.NoError(t, SaveArtifact(path, NewModel(tt.e, Info{Kind: forest.RandomForest})))

			spy := &countingFitter{inner: EnsembleFitter{}}
			m, _, err := newTrainer(spy, false).LoadOrTrain(weeklyHistory(10), path)
			assert.ErrorIs(t, err, model.ErrArtifactIO)
			assert.Nil(t, m)
			assert.Zero(t, spy.calls)
		})
	}
}

package forecast

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RebarForecast/internal/metrics"
	"RebarForecast/internal/model"
	"RebarForecast/internal/recorder"
)

type spyRecorder struct {
	recorder.NoopRecorder
	forecasts []*recorder.ForecastRequest
}

func (s *spyRecorder) RecordForecast(req *recorder.ForecastRequest) error {
	s.forecasts = append(s.forecasts, req)
	return nil
}

type constPredictor float64

func (c constPredictor) Predict(vectors []model.FeatureVector) ([]float64, error) {
	out := make([]float64, len(vectors))
	for i := range out {
		out[i] = float64(c)
	}
	return out, nil
}

func testHistory() *model.History {
	var train []model.PricePoint
	for i := 0; i < 8; i++ {
		train = append(train, model.PricePoint{
			Date:  day(2022, time.November, 7).AddDate(0, 0, 7*i),
			Price: decimal.NewFromInt(40000),
		})
	}
	return &model.History{Train: train, LastDate: train[len(train)-1].Date}
}

func TestService_AutoForecast(t *testing.T) {
	spy := &spyRecorder{}
	svc := NewService(weekPredictor{}, testHistory(), Settings{AutoPeriods: 6, MaxPeriods: 12}, spy, metrics.New(), zerolog.Nop())

	series, err := svc.AutoForecast(SourceTelegram)
	require.NoError(t, err)
	require.Len(t, series, 6)
	assert.True(t, series[0].Date.After(svc.LastDate()))

	require.Len(t, spy.forecasts, 1)
	assert.Equal(t, SourceTelegram, spy.forecasts[0].Source)
	assert.Equal(t, 6, spy.forecasts[0].Periods)
	assert.Len(t, spy.forecasts[0].Points, 6)
	assert.NotEmpty(t, spy.forecasts[0].RequestID)
}

func TestService_AutoForecastWithoutHistory(t *testing.T) {
	svc := NewService(weekPredictor{}, nil, Settings{}, nil, nil, zerolog.Nop())
	_, err := svc.AutoForecast(SourceCLI)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, 6, svc.Settings().AutoPeriods)
}

func TestService_ForecastErrorsNotRecorded(t *testing.T) {
	spy := &spyRecorder{}
	svc := NewService(nil, testHistory(), Settings{}, spy, nil, zerolog.Nop())
	_, err := svc.Forecast(SourceHTTP, day(2023, time.January, 1), 3)
	assert.ErrorIs(t, err, model.ErrModelUnavailable)
	assert.Empty(t, spy.forecasts)
}

func TestService_Recommend(t *testing.T) {
	svc := NewService(constPredictor(42400), testHistory(), Settings{AutoPeriods: 6, MaxPeriods: 12}, nil, nil, zerolog.Nop())

	rec, err := svc.Recommend(SourceTelegram, day(2023, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, day(2023, time.January, 23), rec.Point.Date)
	assert.InDelta(t, 6.0, rec.Advice.ChangePct, 1e-9)
	assert.Equal(t, "закупать сейчас", rec.Advice.Tier.Label)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "invalid_input", ErrorKind(fmt.Errorf("x: %w", model.ErrInvalidInput)))
	assert.Equal(t, "model_unavailable", ErrorKind(model.ErrModelUnavailable))
	assert.Equal(t, "empty_series", ErrorKind(model.ErrEmptySeries))
	assert.Equal(t, "artifact_io", ErrorKind(model.ErrArtifactIO))
	assert.Equal(t, "internal", ErrorKind(errors.New("other")))
}

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RebarForecast/internal/metrics"
	"RebarForecast/internal/model"
	"RebarForecast/internal/notifier"
)

type stubForecaster struct {
	series model.ForecastSeries
	err    error
	calls  int
}

func (s *stubForecaster) AutoForecast(string) (model.ForecastSeries, error) {
	s.calls++
	return s.series, s.err
}

type staticSubs []int64

func (s staticSubs) List() []int64 { return s }

type recordingSender struct {
	sent   map[int64]string
	failOn int64
}

func (r *recordingSender) SendWithRetry(_ context.Context, chatID int64, reply notifier.Reply, _ int) error {
	if chatID == r.failOn {
		return errors.New("blocked by user")
	}
	r.sent[chatID] = reply.Text
	return nil
}

type countingSweeper struct{ active int }

func (c countingSweeper) Sweep(context.Context) (int, error) { return c.active, nil }

func series() model.ForecastSeries {
	return model.ForecastSeries{
		{Date: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), PredictedPrice: decimal.NewFromInt(41000)},
	}
}

func TestBroadcast(t *testing.T) {
	fc := &stubForecaster{series: series()}
	sender := &recordingSender{sent: map[int64]string{}, failOn: 2}
	s := NewScheduler(context.Background(), fc, staticSubs{1, 2, 3}, sender, countingSweeper{}, nil, zerolog.Nop())

	assert.Equal(t, 2, s.RunBroadcastNow())
	assert.Contains(t, sender.sent[1], "📅 02.01.2023: 41 000 руб.")
	assert.Contains(t, sender.sent[3], "Еженедельный прогноз")
	assert.NotContains(t, sender.sent, int64(2))
}

func TestBroadcast_NoSubscribersSkipsForecast(t *testing.T) {
	fc := &stubForecaster{series: series()}
	s := NewScheduler(context.Background(), fc, staticSubs{}, &recordingSender{sent: map[int64]string{}}, countingSweeper{}, nil, zerolog.Nop())
	assert.Equal(t, 0, s.RunBroadcastNow())
	assert.Equal(t, 0, fc.calls)
}

func TestBroadcast_ForecastError(t *testing.T) {
	fc := &stubForecaster{err: model.ErrModelUnavailable}
	sender := &recordingSender{sent: map[int64]string{}}
	s := NewScheduler(context.Background(), fc, staticSubs{1}, sender, countingSweeper{}, nil, zerolog.Nop())
	assert.Equal(t, 0, s.RunBroadcastNow())
	assert.Empty(t, sender.sent)
}

func TestSweepUpdatesGauge(t *testing.T) {
	mr := metrics.New()
	s := NewScheduler(context.Background(), &stubForecaster{}, staticSubs{}, &recordingSender{}, countingSweeper{active: 4}, mr, zerolog.Nop())
	s.sweepTask()

	families, err := mr.Registry().Gather()
	require.NoError(t, err)
	var value float64
	for _, mf := range families {
		if mf.GetName() == "rebar_bot_sessions" {
			value = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 4.0, value)
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &stubForecaster{}, staticSubs{}, &recordingSender{}, countingSweeper{}, nil, zerolog.Nop())
	require.NoError(t, s.RegisterAll("0 0 9 * * 1", "0 */10 * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)
	assert.Error(t, s.RegisterAll("not a cron", "0 */10 * * * *"))
}

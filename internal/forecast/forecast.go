// Package forecast generates weekly price forecasts and looks up the forecast
// point closest to a date.
package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"RebarForecast/internal/features"
	"RebarForecast/internal/model"
)

// AnchorWeekday is the weekday every forecast date falls on.
const AnchorWeekday = time.Monday

// Predictor maps feature vectors to prices.
type Predictor interface {
	Predict(vectors []model.FeatureVector) ([]float64, error)
}

// NextWeeklyAnchor returns the first anchor weekday strictly after date.
func NextWeeklyAnchor(date time.Time) time.Time {
	d := model.CivilDate(date)
	delta := (int(AnchorWeekday) - int(d.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return d.AddDate(0, 0, delta)
}

// Dates returns periods weekly anchor dates following start.
func Dates(start time.Time, periods int) []time.Time {
	first := NextWeeklyAnchor(start)
	out := make([]time.Time, periods)
	for i := range out {
		out[i] = first.AddDate(0, 0, 7*i)
	}
	return out
}

// Forecast predicts periods weekly prices after start.
func Forecast(p Predictor, start time.Time, periods int) (model.ForecastSeries, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("%w: period count must be positive, got %d", model.ErrInvalidInput, periods)
	}
	if p == nil {
		return nil, model.ErrModelUnavailable
	}

	dates := Dates(start, periods)
	prices, err := p.Predict(features.DeriveAll(dates))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(prices) != len(dates) {
		return nil, fmt.Errorf("predict: got %d prices for %d dates", len(prices), len(dates))
	}

	series := make(model.ForecastSeries, len(dates))
	for i, d := range dates {
		series[i] = model.ForecastPoint{
			Date:           d,
			PredictedPrice: decimal.NewFromFloat(prices[i]).Round(2),
		}
	}
	return series, nil
}

// Nearest returns the point whose date is closest to query. On a tie the
// earlier point wins. series must be sorted ascending by date.
func Nearest(series model.ForecastSeries, query time.Time) (model.ForecastPoint, error) {
	if len(series) == 0 {
		return model.ForecastPoint{}, model.ErrEmptySeries
	}

	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(query)
	})
	switch {
	case i == 0:
		return series[0], nil
	case i == len(series):
		return series[len(series)-1], nil
	}

	before, after := series[i-1], series[i]
	if query.Sub(before.Date) <= after.Date.Sub(query) {
		return before, nil
	}
	return after, nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single historical observation.
type PricePoint struct {
	Date  time.Time
	Price decimal.Decimal
}

// ForecastPoint is one predicted value of a forecast series.
type ForecastPoint struct {
	Date           time.Time       `json:"date"`
	PredictedPrice decimal.Decimal `json:"predicted_price"`
}

// ForecastSeries holds forecast points ordered ascending by date.
type ForecastSeries []ForecastPoint

// Dates returns the dates of the series in order.
func (s ForecastSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// CivilDate drops the time of day and location of t, keeping its calendar fields.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package calculator

import (
	"errors"

	"RebarForecast/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// ReferencePrice averages the last period observations. With fewer
// observations than period, all of them are averaged.
func ReferencePrice(history []model.PricePoint, period int) (float64, error) {
	if len(history) == 0 {
		return 0, errors.New("no observations provided")
	}
	if period > len(history) {
		period = len(history)
	}
	return CalculateSMA(extractPrices(history), period)
}

func extractPrices(points []model.PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price.InexactFloat64()
	}
	return prices
}

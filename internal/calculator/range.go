package calculator

import (
	"errors"
	"math"

	"RebarForecast/internal/model"
)

// SeriesRange returns the lowest and highest predicted price of a forecast series.
func SeriesRange(series model.ForecastSeries) (low, high float64, err error) {
	if len(series) == 0 {
		return 0, 0, errors.New("no forecast points provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range series {
		v := p.PredictedPrice.InexactFloat64()
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return low, high, nil
}

// ChangePct returns the relative change from base to target in percent.
func ChangePct(base, target float64) (float64, error) {
	if base == 0 {
		return 0, errors.New("base must be non-zero")
	}
	return (target - base) / base * 100, nil
}

// Package features derives the calendar feature vector the price model is trained on.
package features

import (
	"time"

	"RebarForecast/internal/model"
)

// Derive converts a date into its feature vector. Only the calendar fields of
// date are used, so the result does not depend on its location.
func Derive(date time.Time) model.FeatureVector {
	civil := model.CivilDate(date)
	_, week := civil.ISOWeek()
	return model.FeatureVector{
		Year:      civil.Year(),
		Month:     int(civil.Month()),
		ISOWeek:   week,
		DayOfWeek: DayOfWeek(civil),
	}
}

// DeriveAll derives a feature vector for every date.
func DeriveAll(dates []time.Time) []model.FeatureVector {
	out := make([]model.FeatureVector, len(dates))
	for i, d := range dates {
		out[i] = Derive(d)
	}
	return out
}

// DayOfWeek returns the weekday of t with Monday = 0 and Sunday = 6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

package model

import "fmt"

// FeatureVector is the calendar encoding of a date used by the price model.
type FeatureVector struct {
	Year      int
	Month     int // 1..12
	ISOWeek   int // 1..53
	DayOfWeek int // 0..6, Monday = 0
}

// FeatureCount is the number of columns produced by Values.
const FeatureCount = 4

// Values returns the vector as a model input row.
func (f FeatureVector) Values() []float64 {
	return []float64{float64(f.Year), float64(f.Month), float64(f.ISOWeek), float64(f.DayOfWeek)}
}

// Validate reports out-of-range fields.
func (f FeatureVector) Validate() error {
	switch {
	case f.Year < 1 || f.Year > 9999:
		return fmt.Errorf("%w: year %d out of range", ErrInvalidInput, f.Year)
	case f.Month < 1 || f.Month > 12:
		return fmt.Errorf("%w: month %d out of range", ErrInvalidInput, f.Month)
	case f.ISOWeek < 1 || f.ISOWeek > 53:
		return fmt.Errorf("%w: iso week %d out of range", ErrInvalidInput, f.ISOWeek)
	case f.DayOfWeek < 0 || f.DayOfWeek > 6:
		return fmt.Errorf("%w: day of week %d out of range", ErrInvalidInput, f.DayOfWeek)
	}
	return nil
}

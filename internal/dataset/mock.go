package dataset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"RebarForecast/internal/model"
)

// MockSource serves fixed series keyed by path for development and testing.
type MockSource struct {
	Series map[string][]model.PricePoint
	Err    error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Load(path string) ([]model.PricePoint, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Series[path]
	if !ok || len(s) == 0 {
		return nil, fmt.Errorf("%w: no mock series for %q", model.ErrInvalidInput, path)
	}
	return s, nil
}

// GenerateWeekly returns count weekly observations starting at start with a
// gentle upward drift around basePrice.
func GenerateWeekly(start time.Time, basePrice float64, count int) []model.PricePoint {
	points := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		points[i] = model.PricePoint{
			Date:  model.CivilDate(start).AddDate(0, 0, 7*i),
			Price: decimal.NewFromFloat(p).Round(2),
		}
	}
	return points
}

// Package pricemodel owns the fitted price estimator and its on-disk cache.
package pricemodel

import (
	"fmt"
	"time"

	"RebarForecast/internal/forest"
	"RebarForecast/internal/model"
)

// Info describes how a model was produced.
type Info struct {
	RunID          string
	Kind           forest.Kind
	TrainedAt      time.Time
	TrainSize      int
	ValidationSize int
	MAE            float64
}

// Model is a fitted estimator mapping feature vectors to prices. It is
// immutable and safe for concurrent use.
type Model struct {
	ensemble *forest.Ensemble
	info     Info
}

// NewModel wraps an already fitted ensemble.
func NewModel(e *forest.Ensemble, info Info) *Model {
	return &Model{ensemble: e, info: info}
}

// Info returns the model metadata.
func (m *Model) Info() Info {
	if m == nil {
		return Info{}
	}
	return m.info
}

// Predict returns one predicted price per feature vector.
func (m *Model) Predict(vectors []model.FeatureVector) ([]float64, error) {
	if m == nil || m.ensemble == nil {
		return nil, model.ErrModelUnavailable
	}
	out := make([]float64, len(vectors))
	for i, v := range vectors {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = m.ensemble.Predict(v.Values())
	}
	return out, nil
}

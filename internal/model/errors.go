package model

import "errors"

// Error kinds surfaced by the forecasting core. Callers match them with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrEmptySeries      = errors.New("empty forecast series")
	ErrArtifactIO       = errors.New("artifact io failure")
)

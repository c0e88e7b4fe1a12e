package model

import "time"

// History is the loaded historical dataset.
type History struct {
	Train []PricePoint
	Test  []PricePoint
	// LastDate is the last test date, or the last train date without a test set.
	LastDate time.Time
}

// All returns train and test observations in order.
func (h *History) All() []PricePoint {
	out := make([]PricePoint, 0, len(h.Train)+len(h.Test))
	out = append(out, h.Train...)
	return append(out, h.Test...)
}

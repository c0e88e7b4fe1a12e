package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapTier_AllBoundaries(t *testing.T) {
	tests := []struct {
		change float64
		label  string
	}{
		{12, "закупать сейчас"},
		{5, "закупать сейчас"},
		{4.9, "рекомендуется закупка"},
		{2, "рекомендуется закупка"},
		{1.5, "цена стабильна"},
		{0, "цена стабильна"},
		{-2, "цена стабильна"},
		{-2.1, "можно подождать"},
		{-5, "можно подождать"},
		{-5.1, "отложить закупку"},
		{-30, "отложить закупку"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.label, mapTier(tt.change).Label, "change %.1f", tt.change)
	}
}

func TestAdvise(t *testing.T) {
	adv := Advise(40000, 42400)
	assert.InDelta(t, 6.0, adv.ChangePct, 1e-9)
	assert.Equal(t, "закупать сейчас", adv.Tier.Label)
	assert.Equal(t, 40000.0, adv.ReferencePrice)
	assert.Equal(t, 42400.0, adv.TargetPrice)

	zero := Advise(0, 100)
	assert.Equal(t, 0.0, zero.ChangePct)
	assert.Equal(t, "цена стабильна", zero.Tier.Label)
}

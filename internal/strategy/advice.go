package strategy

import (
	"RebarForecast/internal/calculator"
	"RebarForecast/internal/model"
)

// Tiers maps the expected price change (percent) to a purchasing action, highest first.
var Tiers = []struct {
	MinChange float64
	Tier      model.AdviceTier
}{
	{5, model.AdviceTier{Label: "закупать сейчас", Emoji: "🔥"}},
	{2, model.AdviceTier{Label: "рекомендуется закупка", Emoji: "📈"}},
	{-2, model.AdviceTier{Label: "цена стабильна", Emoji: "⚖️"}},
	{-5, model.AdviceTier{Label: "можно подождать", Emoji: "📉"}},
}

// DefaultTier is used when the price is expected to fall by more than 5%.
var DefaultTier = model.AdviceTier{Label: "отложить закупку", Emoji: "⏳"}

func mapTier(changePct float64) model.AdviceTier {
	for _, t := range Tiers {
		if changePct >= t.MinChange {
			return t.Tier
		}
	}
	return DefaultTier
}

// Advise compares a forecast target price with the current reference price.
// A zero reference yields the neutral tier.
func Advise(reference, target float64) model.Advice {
	change, err := calculator.ChangePct(reference, target)
	if err != nil {
		change = 0
	}
	return model.Advice{
		Tier:           mapTier(change),
		ReferencePrice: reference,
		TargetPrice:    target,
		ChangePct:      change,
	}
}

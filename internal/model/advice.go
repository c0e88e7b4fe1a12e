package model

// AdviceTier maps a forecast price change to a purchasing action.
type AdviceTier struct {
	Label string
	Emoji string
}

// Advice is the outcome of comparing a forecast with a reference price.
type Advice struct {
	Tier           AdviceTier
	ReferencePrice float64
	TargetPrice    float64
	ChangePct      float64
}

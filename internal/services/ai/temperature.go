package ai

import (
	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/tone"
)

// MaxTokens caps every completion
const MaxTokens = 220

// SelectTemperature picks the sampling temperature for a reply. Numbers
// questions run cold, roasts run hot, and everything else cools down in
// the evening.
func SelectTemperature(in intent.Intent, pressure tone.Pressure, localHour int) float64 {
	switch in {
	case intent.Numbers:
		return 0.2
	case intent.Motivation:
		if pressure == tone.PressureHigh {
			return 0.9
		}
		return 0.75
	}
	if localHour >= 18 || localHour < 5 {
		return 0.5
	}
	return 0.7
}

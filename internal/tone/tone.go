// Package tone resolves how hard a reply pushes: pressure from preference,
// feedback and hour, sharpness for roasts, and whether pop culture is allowed.
package tone

import (
	"math/rand/v2"

	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/metrics"
)

// Pressure is how strongly a reply pushes the user to act
type Pressure string

const (
	PressureLow    Pressure = "low"
	PressureMedium Pressure = "medium"
	PressureHigh   Pressure = "high"
)

// Sharpness is the edge of a motivation roast
type Sharpness string

const (
	SharpnessDirect Sharpness = "direct"
	SharpnessSpicy  Sharpness = "spicy"
	SharpnessSavage Sharpness = "savage"
)

// PopCultureProbability is the chance a permitted reply may use a
// pop-culture reference.
const PopCultureProbability = 0.35

// Settings is the resolved coaching register for one reply
type Settings struct {
	Pressure          Pressure     `json:"pressure"`
	Tone              metrics.Tone `json:"tone"`
	Sharpness         Sharpness    `json:"sharpness"`
	PopCultureAllowed bool         `json:"popCultureAllowed"`
}

// Chance is a source of weighted coin flips.
type Chance interface {
	Hit(p float64) bool
}

// RandomChance flips using math/rand/v2.
type RandomChance struct{}

// Hit returns true with probability p.
func (RandomChance) Hit(p float64) bool {
	return rand.Float64() < p
}

// FixedChance always returns its own value.
type FixedChance bool

func (c FixedChance) Hit(float64) bool {
	return bool(c)
}

// BasePressure maps the stored preference: 1 low, 3 high, anything else medium.
func BasePressure(preference int) Pressure {
	switch preference {
	case 1:
		return PressureLow
	case 3:
		return PressureHigh
	default:
		return PressureMedium
	}
}

func downgrade(p Pressure) Pressure {
	switch p {
	case PressureHigh:
		return PressureMedium
	default:
		return PressureLow
	}
}

// EffectivePressure applies the feedback downgrade and the intent overrides
// to the base pressure.
func EffectivePressure(prefs metrics.Preferences, mem memory.Memory, in intent.Intent, onTrack bool) Pressure {
	p := BasePressure(prefs.Pressure)
	if mem.LastFeedbackSentiment == memory.SentimentTooMuchPressure {
		p = downgrade(p)
	}

	switch {
	case in == intent.Numbers || in == intent.MetaFeedback:
		p = PressureLow
	case onTrack && in != intent.Motivation:
		p = PressureLow
	case onTrack && p == PressureHigh:
		p = PressureMedium
	}
	return p
}

// SharpnessFor labels the sharp-tone register for a pressure level.
func SharpnessFor(p Pressure) Sharpness {
	switch p {
	case PressureLow:
		return SharpnessDirect
	case PressureHigh:
		return SharpnessSavage
	default:
		return SharpnessSpicy
	}
}

// Resolve computes Settings. chance is consulted only when every other
// pop-culture condition holds.
func Resolve(prefs metrics.Preferences, mem memory.Memory, in intent.Intent, flags intent.Flags, onTrack bool, chance Chance) Settings {
	p := EffectivePressure(prefs, mem, in, onTrack)
	s := Settings{
		Pressure:  p,
		Tone:      prefs.Tone,
		Sharpness: SharpnessFor(p),
	}
	if s.Tone == "" {
		s.Tone = metrics.ToneNeutral
	}

	eligible := prefs.PopCulture &&
		!flags.LowMood &&
		(in == intent.Motivation || in == intent.Progress) &&
		(s.Tone == metrics.ToneSharp || p != PressureLow)
	if eligible && chance != nil {
		s.PopCultureAllowed = chance.Hit(PopCultureProbability)
	}
	return s
}

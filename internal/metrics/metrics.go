// Package metrics coerces loosely typed client metric bags into optional
// numeric fields and converts body measurements to US units.
package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benvon/insight-coach/internal/models"
)

// Metrics is today's normalized activity, nutrition and recovery data. A nil
// field means unknown.
type Metrics struct {
	Steps             *float64 `json:"steps,omitempty"`
	ActiveCalories    *float64 `json:"activeCalories,omitempty"`
	BasalCalories     *float64 `json:"basalCalories,omitempty"`
	TotalCalories     *float64 `json:"totalCalories,omitempty"`
	DietaryCalories   *float64 `json:"dietaryCalories,omitempty"`
	DietaryProteinG   *float64 `json:"dietaryProteinG,omitempty"`
	DietaryCarbsG     *float64 `json:"dietaryCarbsG,omitempty"`
	DietaryFatG       *float64 `json:"dietaryFatG,omitempty"`
	DietaryFiberG     *float64 `json:"dietaryFiberG,omitempty"`
	ProteinTargetG    *float64 `json:"proteinTargetG,omitempty"`
	ProteinRemainingG *float64 `json:"proteinRemainingG,omitempty"`
	WorkoutMinutes    *float64 `json:"workoutMinutes,omitempty"`
	WorkoutCount      *float64 `json:"workoutCount,omitempty"`
	SleepHours        *float64 `json:"sleepHours,omitempty"`
	RestingHeartRate  *float64 `json:"restingHeartRate,omitempty"`
	HRV               *float64 `json:"hrv,omitempty"`
}

// Profile holds body measurements
type Profile struct {
	HeightCm *float64 `json:"heightCm,omitempty"`
	WeightKg *float64 `json:"weightKg,omitempty"`
	Age      *float64 `json:"age,omitempty"`
}

// Trends holds 7-day rolling baselines
type Trends struct {
	Steps7dAvg            *float64 `json:"steps7dAvg,omitempty"`
	Sleep7dAvg            *float64 `json:"sleep7dAvg,omitempty"`
	RestingHeartRate7dAvg *float64 `json:"restingHeartRate7dAvg,omitempty"`
	HRV7dAvg              *float64 `json:"hrv7dAvg,omitempty"`
	WorkoutMinutes7d      *float64 `json:"workoutMinutes7d,omitempty"`
}

// Tone is the user's preferred register
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneWarm    Tone = "warm"
	ToneSharp   Tone = "sharp"
)

// Preferences are the user's coaching settings. Pressure is 1, 2 or 3 when
// set and 0 when unknown.
type Preferences struct {
	Pressure   int  `json:"pressure,omitempty"`
	Tone       Tone `json:"tone"`
	PopCulture bool `json:"popCulture"`
}

// Steps averages under this are too sparse to use as a baseline.
const minUsableStepsAverage = 2000

// ParseNumber returns a pointer to the finite number raw holds, or nil.
// Numeric strings are trimmed and parsed; every other type is unknown.
func ParseNumber(raw any) *float64 {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// lookup returns the first parseable value among keys.
func lookup(bag models.Bag, keys ...string) *float64 {
	for _, k := range keys {
		if raw, ok := bag[k]; ok {
			if v := ParseNumber(raw); v != nil {
				return v
			}
		}
	}
	return nil
}

// Normalize builds Metrics from a raw bag. An HRV of exactly zero is a sensor
// artifact and is reported as unknown.
func Normalize(bag models.Bag) Metrics {
	m := Metrics{
		Steps:             lookup(bag, "steps"),
		ActiveCalories:    lookup(bag, "activeCalories", "activeCaloriesBurned"),
		BasalCalories:     lookup(bag, "basalCalories", "basalCaloriesBurned"),
		TotalCalories:     lookup(bag, "totalCalories", "totalCaloriesBurned"),
		DietaryCalories:   lookup(bag, "dietaryCalories"),
		DietaryProteinG:   lookup(bag, "dietaryProteinG"),
		DietaryCarbsG:     lookup(bag, "dietaryCarbsG"),
		DietaryFatG:       lookup(bag, "dietaryFatG"),
		DietaryFiberG:     lookup(bag, "dietaryFiberG"),
		ProteinTargetG:    lookup(bag, "proteinTargetG"),
		ProteinRemainingG: lookup(bag, "proteinRemainingG"),
		WorkoutMinutes:    lookup(bag, "workoutMinutes"),
		WorkoutCount:      lookup(bag, "workoutCount"),
		SleepHours:        lookup(bag, "sleepHours"),
		RestingHeartRate:  lookup(bag, "restingHeartRate", "rhr"),
		HRV:               lookup(bag, "hrv", "heartRateVariability"),
	}
	if m.HRV != nil && *m.HRV == 0 {
		m.HRV = nil
	}
	return m
}

// BurnedCalories returns total burn, falling back to active plus basal.
func (m Metrics) BurnedCalories() *float64 {
	if m.TotalCalories != nil {
		return m.TotalCalories
	}
	if m.ActiveCalories != nil && m.BasalCalories != nil {
		sum := *m.ActiveCalories + *m.BasalCalories
		return &sum
	}
	return nil
}

// NetCalories is dietary intake minus burn; negative means a deficit.
func (m Metrics) NetCalories() *float64 {
	burned := m.BurnedCalories()
	if burned == nil || m.DietaryCalories == nil {
		return nil
	}
	net := *m.DietaryCalories - *burned
	return &net
}

// NormalizeProfile reads height, weight and age from a loose profile bag.
// Missing or non-positive values are left nil.
func NormalizeProfile(bag models.Bag) Profile {
	return Profile{
		HeightCm: positive(lookup(bag, "heightCm")),
		WeightKg: positive(lookup(bag, "weightKg")),
		Age:      positive(lookup(bag, "age")),
	}
}

// NormalizeTrends builds Trends, discarding a steps average below 2000.
func NormalizeTrends(bag models.Bag) Trends {
	t := Trends{
		Steps7dAvg:            lookup(bag, "steps7dAvg"),
		Sleep7dAvg:            lookup(bag, "sleep7dAvg"),
		RestingHeartRate7dAvg: lookup(bag, "restingHeartRate7dAvg"),
		HRV7dAvg:              lookup(bag, "hrv7dAvg"),
		WorkoutMinutes7d:      lookup(bag, "workoutMinutes7d"),
	}
	if t.Steps7dAvg != nil && *t.Steps7dAvg < minUsableStepsAverage {
		t.Steps7dAvg = nil
	}
	return t
}

// NormalizePreferences reads pressure, tone and the pop-culture switch.
// Unknown tones fall back to neutral and popCulture defaults to true.
func NormalizePreferences(bag models.Bag) Preferences {
	p := Preferences{Tone: ToneNeutral, PopCulture: true}

	if v := lookup(bag, "pressure"); v != nil {
		if n := int(math.Round(*v)); n >= 1 && n <= 3 {
			p.Pressure = n
		}
	}
	if raw, ok := bag["tone"].(string); ok {
		switch t := Tone(strings.ToLower(strings.TrimSpace(raw))); t {
		case ToneNeutral, ToneWarm, ToneSharp:
			p.Tone = t
		}
	}
	switch v := bag["popCulture"].(type) {
	case bool:
		p.PopCulture = v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			p.PopCulture = b
		}
	}
	return p
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// HeightUS renders centimeters as feet and inches, e.g. 170 → 5′ 7″.
// Inches are rounded first so 182.88 cm reads 6′ 0″ rather than 5′ 12″.
func HeightUS(cm float64) string {
	totalInches := int(math.Round(cm / 2.54))
	return fmt.Sprintf("%d′ %d″", totalInches/12, totalInches%12)
}

// WeightLbs converts kilograms to whole pounds.
func WeightLbs(kg float64) int {
	return int(math.Round(kg * 2.2046226218))
}

package metrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/benvon/insight-coach/internal/models"
)

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want *float64
	}{
		{name: "float", raw: 12.5, want: ptr(12.5)},
		{name: "int", raw: 7, want: ptr(7)},
		{name: "int64", raw: int64(-3), want: ptr(-3)},
		{name: "json number", raw: json.Number("42"), want: ptr(42)},
		{name: "numeric string", raw: " 8000 ", want: ptr(8000)},
		{name: "non-numeric string", raw: "lots", want: nil},
		{name: "empty string", raw: "", want: nil},
		{name: "nil", raw: nil, want: nil},
		{name: "NaN", raw: math.NaN(), want: nil},
		{name: "infinity", raw: math.Inf(1), want: nil},
		{name: "string infinity", raw: "Infinity", want: nil},
		{name: "string NaN", raw: "NaN", want: nil},
		{name: "bool", raw: true, want: nil},
		{name: "object", raw: map[string]any{"v": 1}, want: nil},
		{name: "bad json number", raw: json.Number("x"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseNumber(tt.raw)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("ParseNumber(%v) = %v, want nil", tt.raw, *got)
			case tt.want != nil && got == nil:
				t.Errorf("ParseNumber(%v) = nil, want %v", tt.raw, *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("ParseNumber(%v) = %v, want %v", tt.raw, *got, *tt.want)
			}
		})
	}
}

func TestNormalizeDegradesToAbsent(t *testing.T) {
	t.Parallel()

	bag := models.Bag{
		"steps":            "not a number",
		"sleepHours":       nil,
		"restingHeartRate": "NaN",
		"dietaryProteinG":  map[string]any{},
	}
	m := Normalize(bag)
	if m.Steps != nil || m.SleepHours != nil || m.RestingHeartRate != nil || m.DietaryProteinG != nil {
		t.Errorf("expected all fields absent, got %+v", m)
	}

	empty := Normalize(nil)
	if empty != (Metrics{}) {
		t.Errorf("Normalize(nil) = %+v, want zero value", empty)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	m := Normalize(models.Bag{
		"steps":                "9500",
		"activeCaloriesBurned": 600.0,
		"basalCalories":        1700,
		"dietaryCalories":      "1800",
		"rhr":                  58,
		"hrv":                  0,
		"sleepHours":           7.2,
	})

	if m.Steps == nil || *m.Steps != 9500 {
		t.Errorf("Steps = %v", m.Steps)
	}
	if m.ActiveCalories == nil || *m.ActiveCalories != 600 {
		t.Errorf("ActiveCalories alias not read: %v", m.ActiveCalories)
	}
	if m.RestingHeartRate == nil || *m.RestingHeartRate != 58 {
		t.Errorf("RestingHeartRate alias not read: %v", m.RestingHeartRate)
	}
	if m.HRV != nil {
		t.Errorf("HRV of zero should be absent, got %v", *m.HRV)
	}

	burned := m.BurnedCalories()
	if burned == nil || *burned != 2300 {
		t.Errorf("BurnedCalories() = %v, want 2300", burned)
	}
	net := m.NetCalories()
	if net == nil || *net != -500 {
		t.Errorf("NetCalories() = %v, want -500", net)
	}
}

func TestNormalizeTrends(t *testing.T) {
	t.Parallel()

	tr := NormalizeTrends(models.Bag{"steps7dAvg": 1500, "sleep7dAvg": "7.1", "workoutMinutes7d": 200})
	if tr.Steps7dAvg != nil {
		t.Errorf("steps average below 2000 should be discarded, got %v", *tr.Steps7dAvg)
	}
	if tr.Sleep7dAvg == nil || *tr.Sleep7dAvg != 7.1 {
		t.Errorf("Sleep7dAvg = %v", tr.Sleep7dAvg)
	}

	tr = NormalizeTrends(models.Bag{"steps7dAvg": 2000})
	if tr.Steps7dAvg == nil {
		t.Error("steps average of exactly 2000 should be kept")
	}
}

func TestNormalizePreferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bag      models.Bag
		validate func(*testing.T, Preferences)
	}{
		{
			name: "defaults",
			bag:  nil,
			validate: func(t *testing.T, p Preferences) {
				if p.Pressure != 0 || p.Tone != ToneNeutral || !p.PopCulture {
					t.Errorf("unexpected defaults: %+v", p)
				}
			},
		},
		{
			name: "explicit values",
			bag:  models.Bag{"pressure": "3", "tone": "Sharp", "popCulture": false},
			validate: func(t *testing.T, p Preferences) {
				if p.Pressure != 3 || p.Tone != ToneSharp || p.PopCulture {
					t.Errorf("unexpected preferences: %+v", p)
				}
			},
		},
		{
			name: "out of range pressure and unknown tone",
			bag:  models.Bag{"pressure": 9, "tone": "grumpy", "popCulture": "false"},
			validate: func(t *testing.T, p Preferences) {
				if p.Pressure != 0 || p.Tone != ToneNeutral || p.PopCulture {
					t.Errorf("unexpected preferences: %+v", p)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.validate(t, NormalizePreferences(tt.bag))
		})
	}
}

func TestNormalizeProfileDropsNonPositive(t *testing.T) {
	t.Parallel()

	p := NormalizeProfile(models.Bag{"heightCm": 0, "weightKg": "70", "age": -1})
	if p.HeightCm != nil || p.Age != nil {
		t.Errorf("expected non-positive values absent, got %+v", p)
	}
	if p.WeightKg == nil || *p.WeightKg != 70 {
		t.Errorf("WeightKg = %v", p.WeightKg)
	}
}

func TestUnitConversions(t *testing.T) {
	t.Parallel()

	heights := []struct {
		cm   float64
		want string
	}{
		{cm: 182.88, want: "6′ 0″"},
		{cm: 170, want: "5′ 7″"},
		{cm: 152.4, want: "5′ 0″"},
		{cm: 181.5, want: "5′ 11″"},
		{cm: 181.7, want: "6′ 0″"},
	}
	for _, h := range heights {
		if got := HeightUS(h.cm); got != h.want {
			t.Errorf("HeightUS(%v) = %q, want %q", h.cm, got, h.want)
		}
	}

	if got := WeightLbs(70); got != 154 {
		t.Errorf("WeightLbs(70) = %d, want 154", got)
	}
	if got := WeightLbs(100); got != 220 {
		t.Errorf("WeightLbs(100) = %d, want 220", got)
	}
}

func ptr(v float64) *float64 { return &v }

// Package signals derives readiness, load, pacing and on-track hints from
// today's metrics and the 7-day baselines.
package signals

import (
	"math"

	"github.com/benvon/insight-coach/internal/metrics"
)

// Readiness is a traffic-light read of recovery
type Readiness string

const (
	ReadinessGreen  Readiness = "green"
	ReadinessYellow Readiness = "yellow"
	ReadinessRed    Readiness = "red"
)

// Load is recent training strain relative to baseline
type Load string

const (
	LoadLow      Load = "low"
	LoadModerate Load = "moderate"
	LoadHigh     Load = "high"
)

const (
	minProteinPerMeal = 25
	maxProteinPerMeal = 70
)

// Signals are the derived hints for one request
type Signals struct {
	SleepDelta        *float64  `json:"sleepDelta,omitempty"`
	RHRDelta          *float64  `json:"rhrDelta,omitempty"`
	HRVDelta          *float64  `json:"hrvDelta,omitempty"`
	Readiness         Readiness `json:"readiness"`
	Load              Load      `json:"load"`
	OnTrack           bool      `json:"onTrack"`
	ProteinBehindPace bool      `json:"proteinBehindPace"`
	ProteinPerMeal    *int      `json:"proteinPerMeal,omitempty"`
	MealsLeft         int       `json:"mealsLeft"`
}

// Compute derives Signals. localHour is the user's wall-clock hour, 0–23.
func Compute(m metrics.Metrics, t metrics.Trends, localHour int) Signals {
	s := Signals{
		SleepDelta: delta(m.SleepHours, t.Sleep7dAvg),
		RHRDelta:   delta(m.RestingHeartRate, t.RestingHeartRate7dAvg),
		HRVDelta:   delta(m.HRV, t.HRV7dAvg),
		Load:       LoadFor(t.WorkoutMinutes7d),
		MealsLeft:  MealsLeft(localHour),
	}
	s.Readiness = ReadinessFor(m.SleepHours, s.RHRDelta, s.HRVDelta)
	s.ProteinPerMeal = ProteinPerMeal(m.ProteinRemainingG, s.MealsLeft)
	s.ProteinBehindPace = ProteinBehindPace(m.DietaryProteinG, m.ProteinTargetG, localHour)
	s.OnTrack = OnTrack(m, t, s.ProteinBehindPace)
	return s
}

func delta(today, baseline *float64) *float64 {
	if today == nil || baseline == nil {
		return nil
	}
	d := *today - *baseline
	return &d
}

// ReadinessFor applies the red checks in order before considering green.
// Without a sleep reading the result is never green.
func ReadinessFor(sleep, rhrDelta, hrvDelta *float64) Readiness {
	switch {
	case sleep != nil && *sleep < 6:
		return ReadinessRed
	case rhrDelta != nil && *rhrDelta >= 6:
		return ReadinessRed
	case hrvDelta != nil && *hrvDelta <= -10:
		return ReadinessRed
	}

	if sleep != nil && *sleep >= 7 &&
		(rhrDelta == nil || *rhrDelta <= 0) &&
		(hrvDelta == nil || *hrvDelta >= 0) {
		return ReadinessGreen
	}
	return ReadinessYellow
}

// LoadFor buckets 7-day workout minutes at 150 and 300.
func LoadFor(workoutMinutes7d *float64) Load {
	switch {
	case workoutMinutes7d == nil:
		return LoadLow
	case *workoutMinutes7d >= 300:
		return LoadHigh
	case *workoutMinutes7d >= 150:
		return LoadModerate
	default:
		return LoadLow
	}
}

// MealsLeft is 3 before 11:00, 2 until 20:59 and 1 from 21:00.
func MealsLeft(localHour int) int {
	switch {
	case localHour < 11:
		return 3
	case localHour < 21:
		return 2
	default:
		return 1
	}
}

// ProteinPerMeal splits remaining protein over the meals left, clamped to
// [25, 70] grams. Nil when remaining protein is unknown.
func ProteinPerMeal(remaining *float64, mealsLeft int) *int {
	if remaining == nil || mealsLeft <= 0 {
		return nil
	}
	grams := int(math.Round(*remaining / float64(mealsLeft)))
	grams = max(minProteinPerMeal, min(maxProteinPerMeal, grams))
	return &grams
}

// expectedProteinShare is the fraction of the daily target that should be
// eaten by localHour.
func expectedProteinShare(localHour int) float64 {
	switch {
	case localHour < 11:
		return 0.2
	case localHour < 21:
		return 0.5
	default:
		return 0.75
	}
}

// ProteinBehindPace reports whether consumed protein trails the share of the
// target expected by this hour.
func ProteinBehindPace(consumed, target *float64, localHour int) bool {
	if consumed == nil || target == nil || *target <= 0 {
		return false
	}
	return *consumed < *target*expectedProteinShare(localHour)
}

// NothingLogged reports whether no nutrition has been logged today.
func NothingLogged(m metrics.Metrics) bool {
	return isZero(m.DietaryCalories) && isZero(m.DietaryProteinG)
}

// HasWorkoutData reports whether any training was recorded today.
func HasWorkoutData(m metrics.Metrics) bool {
	return (m.WorkoutMinutes != nil && *m.WorkoutMinutes > 0) ||
		(m.WorkoutCount != nil && *m.WorkoutCount > 0)
}

// OnTrack is a majority vote: at least three of the movement, sleep,
// nutrition and training checks pass.
func OnTrack(m metrics.Metrics, t metrics.Trends, proteinBehind bool) bool {
	checks := []bool{
		movementOK(m, t),
		m.SleepHours == nil || *m.SleepHours >= 6.5,
		!proteinBehind || NothingLogged(m),
		trainingOK(m),
	}
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	return passed >= 3
}

func movementOK(m metrics.Metrics, t metrics.Trends) bool {
	switch {
	case m.Steps == nil:
		return true
	case t.Steps7dAvg != nil:
		return *m.Steps >= 0.8**t.Steps7dAvg
	default:
		return *m.Steps >= 6000
	}
}

func trainingOK(m metrics.Metrics) bool {
	switch {
	case HasWorkoutData(m):
		return true
	case m.Steps != nil:
		return *m.Steps >= 10000
	default:
		return true
	}
}

func isZero(v *float64) bool {
	return v == nil || *v == 0
}

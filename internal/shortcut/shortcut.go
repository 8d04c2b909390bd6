// Package shortcut answers profile and recovery questions from data already
// in the request, without a completion call.
package shortcut

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/metrics"
	"github.com/benvon/insight-coach/internal/signals"
)

// Kind names the shortcut that produced a reply
type Kind string

const (
	KindNone     Kind = "none"
	KindProfile  Kind = "profile"
	KindRecovery Kind = "recovery"
)

const separator = " • "

// Fixed replies
const (
	ProfileUnknownReply   = "I don't have your height, weight, or age yet. Add them to your profile and I'll keep them handy."
	RecoveryNotReadyReply = "Your recovery metrics aren't in yet. Refresh your health sync and ask me again."
)

const (
	noteBelowUsual   = "That's below your usual, so go lighter today."
	noteShortSleep   = "That's on the short side, so take it a bit easier."
	noteSolidSleep   = "That's solid, so recovery looks decent."
	noteNoHRV        = "HRV isn't available today, so this is based on sleep."
	noteRHRElevated  = "Your resting HR is above baseline, so go easier today."
	noteRHROkay      = "Resting HR looks okay."
	noteHardToJudge  = "That's hard to judge on its own. Try resyncing your watch."
	sleepDeltaCutoff = -0.7
	shortSleepHours  = 6.5
	rhrElevatedDelta = 6
)

// Respond evaluates the profile shortcut, then the recovery shortcut. ok is
// false when neither applies and the full pipeline should run.
func Respond(flags intent.Flags, p metrics.Profile, m metrics.Metrics, s signals.Signals) (text string, kind Kind, ok bool) {
	if flags.ProfileQuery {
		return Profile(p), KindProfile, true
	}
	if flags.RecoveryQuery {
		return Recovery(m, s), KindRecovery, true
	}
	return "", KindNone, false
}

// Profile lists the known body measurements, e.g.
// "Yep — Height: 5′ 7″ • Weight: 154 lb • Age: 30."
func Profile(p metrics.Profile) string {
	var parts []string
	if p.HeightCm != nil {
		parts = append(parts, "Height: "+metrics.HeightUS(*p.HeightCm))
	}
	if p.WeightKg != nil {
		parts = append(parts, fmt.Sprintf("Weight: %d lb", metrics.WeightLbs(*p.WeightKg)))
	}
	if p.Age != nil {
		parts = append(parts, fmt.Sprintf("Age: %d", int(math.Round(*p.Age))))
	}
	if len(parts) == 0 {
		return ProfileUnknownReply
	}
	return "Yep — " + strings.Join(parts, separator) + "."
}

// Recovery lists the known recovery metrics followed by one note.
func Recovery(m metrics.Metrics, s signals.Signals) string {
	sleep := known(m.SleepHours)
	rhr := known(m.RestingHeartRate)
	hrv := known(m.HRV)
	if sleep == nil && rhr == nil && hrv == nil {
		return RecoveryNotReadyReply
	}

	var parts []string
	if sleep != nil {
		parts = append(parts, "Sleep: "+formatHours(*sleep)+"h")
	}
	if rhr != nil {
		parts = append(parts, fmt.Sprintf("Resting HR: %d bpm", int(math.Round(*rhr))))
	}
	if hrv != nil {
		parts = append(parts, fmt.Sprintf("HRV: %d ms", int(math.Round(*hrv))))
	}

	return strings.Join(parts, separator) + ". " + recoveryNote(sleep, rhr, hrv, s)
}

func recoveryNote(sleep, rhr, hrv *float64, s signals.Signals) string {
	switch {
	case sleep != nil && s.SleepDelta != nil && *s.SleepDelta <= sleepDeltaCutoff:
		return noteBelowUsual
	case sleep != nil && *sleep < shortSleepHours:
		return noteShortSleep
	case sleep != nil:
		if hrv == nil {
			return noteSolidSleep + " " + noteNoHRV
		}
		return noteSolidSleep
	case rhr != nil && s.RHRDelta != nil && *s.RHRDelta >= rhrElevatedDelta:
		return noteRHRElevated
	case rhr != nil:
		return noteRHROkay
	default:
		return noteHardToJudge
	}
}

func known(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// formatHours keeps one decimal and drops a trailing ".0".
func formatHours(h float64) string {
	return strconv.FormatFloat(math.Round(h*10)/10, 'f', -1, 64)
}

// Package prompt composes the system instruction sent to the completion
// service. Each fragment is a pure function of its inputs; Compose joins
// the non-empty ones in a fixed order.
package prompt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/metrics"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/reply"
	"github.com/benvon/insight-coach/internal/signals"
	"github.com/benvon/insight-coach/internal/tone"
)

// HistoryWindow is the number of most recent turns included.
const HistoryWindow = 12

// BirthDetails are only rendered for personas that use them
type BirthDetails struct {
	Date  string
	Time  string
	Place string
}

// Input is everything the composer reads
type Input struct {
	Persona      Persona
	Birth        BirthDetails
	Settings     tone.Settings
	Memory       memory.Memory
	Metrics      metrics.Metrics
	Trends       metrics.Trends
	Signals      signals.Signals
	Intent       intent.Intent
	Flags        intent.Flags
	History      []models.ChatTurn
	Question     string
	IsVoiceInput bool
	LocalHour    int
}

// Prompt is the composed instruction plus the facts later stages reuse
type Prompt struct {
	System         string
	User           string
	Persona        string
	ProteinPerMeal *int
	IncludesMacros bool
}

// Compose builds the prompt for in.
func Compose(in Input) Prompt {
	fragments := []string{
		PersonaFragment(in.Persona, in.Birth),
		RulesFragment(in.IsVoiceInput),
		SettingsFragment(in.Settings, in.Intent),
		MemoryFragment(in.Memory),
		TodayFragment(in),
		HistoryFragment(in.History),
		QuestionFragment(in.Question),
	}

	kept := fragments[:0]
	for _, f := range fragments {
		if f != "" {
			kept = append(kept, f)
		}
	}

	return Prompt{
		System:         strings.Join(kept, "\n\n"),
		User:           in.Question,
		Persona:        in.Persona.Key,
		ProteinPerMeal: in.Signals.ProteinPerMeal,
		IncludesMacros: IncludeMacros(in.Intent, in.Flags),
	}
}

// PersonaFragment renders the lens instructions, with birth details for
// personas that use them.
func PersonaFragment(p Persona, birth BirthDetails) string {
	text := p.Instructions
	if !p.UsesBirthDetails {
		return text
	}

	var details []string
	if birth.Date != "" {
		details = append(details, "born "+birth.Date)
	}
	if birth.Time != "" {
		details = append(details, "at "+birth.Time)
	}
	if birth.Place != "" {
		details = append(details, "in "+birth.Place)
	}
	if len(details) > 0 {
		text += "\nBirth details: " + strings.Join(details, " ") + "."
	}
	return text
}

// RulesFragment lists the ground rules every reply follows.
func RulesFragment(voice bool) string {
	rules := []string{
		"Rules:",
		"- Never open with: " + quoteList(reply.BannedOpeners) + ".",
		"- The metrics below are theirs and you can see them. Never say you lack access to their data.",
		"- Pick exactly one mode for this reply: reflective validation, directive guidance, factual information, or light banter. Do not mix modes.",
		"- Do not end with a follow-up question unless they are planning an action, you need data they have not given, or they asked for options.",
		"- Use only the numbers given here. Do not invent ranges; give one number.",
		"- Keep it to three sentences at most.",
	}
	if voice {
		rules = append(rules, "- This reply will be read aloud: no lists, no markdown, no emoji.")
	}
	return strings.Join(rules, "\n")
}

// SettingsFragment renders the resolved register.
func SettingsFragment(s tone.Settings, in intent.Intent) string {
	lines := []string{
		"Settings:",
		"- Topic: " + string(in),
		"- Pressure: " + string(s.Pressure),
	}

	toneLine := "- Tone: " + string(s.Tone)
	if s.Tone == metrics.ToneSharp {
		toneLine += " (" + string(s.Sharpness) + ")"
	}
	lines = append(lines, toneLine)

	if s.PopCultureAllowed {
		lines = append(lines, "- You may use one brief pop-culture reference.")
	} else {
		lines = append(lines, "- No pop-culture references.")
	}
	return strings.Join(lines, "\n")
}

// MemoryFragment renders remembered facts. Empty memory renders nothing.
func MemoryFragment(m memory.Memory) string {
	if m.IsEmpty() {
		return ""
	}

	lines := []string{"What you remember about them:"}
	if m.DaysActive > 0 {
		lines = append(lines, fmt.Sprintf("- Days checked in: %d", m.DaysActive))
	}
	if m.ProteinStreakDays > 0 {
		lines = append(lines, fmt.Sprintf("- Protein goal streak: %d days", m.ProteinStreakDays))
	}
	if m.FavoriteSnack != "" {
		lines = append(lines, "- Favorite snack: "+m.FavoriteSnack)
	}
	if m.WorkoutTimePreference != "" {
		lines = append(lines, "- Usually trains: "+m.WorkoutTimePreference)
	}
	if m.Goal != "" {
		lines = append(lines, "- Goal: "+m.Goal)
	}
	switch m.LastFeedbackSentiment {
	case memory.SentimentTooMuchPressure:
		lines = append(lines, "- Last feedback: you pushed too hard. Ease off.")
	case memory.SentimentGood:
		lines = append(lines, "- Last feedback: your style landed well.")
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}

// IncludeMacros reports whether the macro block belongs in the prompt.
func IncludeMacros(in intent.Intent, f intent.Flags) bool {
	return f.MentionsMacros || in == intent.Food || f.WantsQuickLog || f.LikelyUnloggedFood
}

// TodayFragment renders only the metrics relevant to the intent.
func TodayFragment(in Input) string {
	m, s := in.Metrics, in.Signals
	var lines []string
	add := func(label string, v *float64, unit string) {
		if v != nil {
			lines = append(lines, "- "+label+": "+formatNumber(*v)+unit)
		}
	}

	lines = append(lines, fmt.Sprintf("- Local time: %02d:00", in.LocalHour))

	switch in.Intent {
	case intent.Numbers:
		add("Eaten", m.DietaryCalories, " kcal")
		add("Burned", m.BurnedCalories(), " kcal")
		add("Net", m.NetCalories(), " kcal")
		add("Steps", m.Steps, "")
		add("Workout minutes", m.WorkoutMinutes, "")
	case intent.Food:
		add("Eaten", m.DietaryCalories, " kcal")
		add("Net", m.NetCalories(), " kcal")
	case intent.Motivation:
		add("Steps", m.Steps, "")
		add("Net", m.NetCalories(), " kcal")
		add("Protein remaining", m.ProteinRemainingG, "g")
		add("Protein eaten", m.DietaryProteinG, "g")
		add("Workout minutes", m.WorkoutMinutes, "")
		lines = append(lines, "- Readiness: "+string(s.Readiness))
	case intent.Progress:
		add("Steps", m.Steps, "")
		add("7-day steps average", in.Trends.Steps7dAvg, "")
		add("Sleep", m.SleepHours, "h")
		add("Workout minutes", m.WorkoutMinutes, "")
		add("7-day workout minutes", in.Trends.WorkoutMinutes7d, "")
		add("Protein eaten", m.DietaryProteinG, "g")
		lines = append(lines,
			"- Readiness: "+string(s.Readiness),
			"- Recent load: "+string(s.Load),
			"- On track today: "+yesNo(s.OnTrack),
		)
	case intent.General:
		add("Steps", m.Steps, "")
		add("Sleep", m.SleepHours, "h")
		lines = append(lines, "- Readiness: "+string(s.Readiness))
	}

	includeMacros := IncludeMacros(in.Intent, in.Flags)
	if includeMacros {
		lines = append(lines, macroLines(m, s)...)
	}
	if (includeMacros || in.Intent == intent.Food) && s.ProteinPerMeal != nil {
		lines = append(lines, fmt.Sprintf("- Protein per meal for the rest of today: %dg (%d meals left)", *s.ProteinPerMeal, s.MealsLeft))
	}

	lines = append(lines, flagNotes(in.Flags)...)
	return "Today:\n" + strings.Join(lines, "\n")
}

func macroLines(m metrics.Metrics, s signals.Signals) []string {
	lines := []string{"- Macros today:"}
	add := func(label string, v *float64) {
		if v != nil {
			lines = append(lines, "  - "+label+": "+formatNumber(*v)+"g")
		}
	}
	add("Protein", m.DietaryProteinG)
	add("Protein target", m.ProteinTargetG)
	add("Protein remaining", m.ProteinRemainingG)
	add("Carbs", m.DietaryCarbsG)
	add("Fat", m.DietaryFatG)
	add("Fiber", m.DietaryFiberG)
	if len(lines) == 1 {
		lines = append(lines, "  - Nothing logged yet")
	}
	if s.ProteinBehindPace {
		lines = append(lines, "  - Protein is behind pace for this time of day")
	}
	return lines
}

func flagNotes(f intent.Flags) []string {
	var notes []string
	if f.LikelyUnloggedFood {
		notes = append(notes, "- They mention eating that is probably not logged yet. Count it in your advice.")
	}
	if f.WantsQuickLog {
		notes = append(notes, "- They want to log food fast. Give one rough estimate of calories and protein.")
	}
	if f.PlanningLater {
		notes = append(notes, "- They are planning something later today. Make the advice about that plan.")
	}
	if f.LowMood {
		notes = append(notes, "- They sound low. No jokes, no roasting.")
	}
	return notes
}

// HistoryFragment renders the last HistoryWindow turns as "role: text",
// skipping blank turns.
func HistoryFragment(turns []models.ChatTurn) string {
	if len(turns) > HistoryWindow {
		turns = turns[len(turns)-HistoryWindow:]
	}

	var lines []string
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		lines = append(lines, string(t.Role)+": "+text)
	}
	if len(lines) == 0 {
		return ""
	}
	return "Recent conversation:\n" + strings.Join(lines, "\n")
}

// QuestionFragment renders the question verbatim.
func QuestionFragment(question string) string {
	return "Their message: " + question
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) || math.Abs(v) >= 100 {
		return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
	}
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return strings.Join(quoted, ", ")
}

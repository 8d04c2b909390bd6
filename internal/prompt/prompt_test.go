package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/metrics"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/signals"
	"github.com/benvon/insight-coach/internal/tone"
)

func TestComposeFoodQuestionAtDinner(t *testing.T) {
	t.Parallel()

	question := "What should I eat for dinner?"
	m := metrics.Normalize(models.Bag{
		"dietaryProteinG":   40,
		"proteinTargetG":    150,
		"proteinRemainingG": 110,
	})
	in := intent.Classify(question)
	flags := intent.DetectFlags(question, m)
	sig := signals.Compute(m, metrics.Trends{}, 19)

	if in != intent.Food {
		t.Fatalf("intent = %s, want food", in)
	}

	p := Compose(Input{
		Persona:   DefaultCatalogue().Lookup(""),
		Settings:  tone.Resolve(metrics.Preferences{Tone: metrics.ToneNeutral, PopCulture: true}, memory.Memory{}, in, flags, sig.OnTrack, tone.FixedChance(false)),
		Metrics:   m,
		Signals:   sig,
		Intent:    in,
		Flags:     flags,
		Question:  question,
		LocalHour: 19,
	})

	if p.ProteinPerMeal == nil || *p.ProteinPerMeal != 55 {
		t.Fatalf("ProteinPerMeal = %v, want 55", p.ProteinPerMeal)
	}
	if !p.IncludesMacros {
		t.Error("expected macro block for food intent")
	}
	for _, want := range []string{
		"- Macros today:",
		"  - Protein: 40g",
		"  - Protein target: 150g",
		"  - Protein remaining: 110g",
		"- Protein per meal for the rest of today: 55g (2 meals left)",
		"Their message: What should I eat for dinner?",
	} {
		if !strings.Contains(p.System, want) {
			t.Errorf("prompt missing %q\n%s", want, p.System)
		}
	}
	if p.User != question {
		t.Errorf("User = %q", p.User)
	}
	if p.Persona != "coach" {
		t.Errorf("Persona = %q, want coach", p.Persona)
	}
}

func TestComposeFragmentOrder(t *testing.T) {
	t.Parallel()

	p := Compose(Input{
		Persona:  Persona{Key: "coach", Instructions: "PERSONA"},
		Settings: tone.Settings{Pressure: tone.PressureLow, Tone: metrics.ToneWarm},
		Memory:   memory.Memory{DaysActive: 3},
		Intent:   intent.General,
		History:  []models.ChatTurn{{Role: models.ChatRoleUser, Text: "earlier"}},
		Question: "hello",
	})

	markers := []string{"PERSONA", "Rules:", "Settings:", "What you remember about them:", "Today:", "Recent conversation:", "Their message: hello"}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(p.System, marker)
		if idx < 0 {
			t.Fatalf("missing %q", marker)
		}
		if idx <= last {
			t.Errorf("%q is out of order", marker)
		}
		last = idx
	}
	if strings.Contains(p.System, "\n\n\n") {
		t.Error("empty fragments should not leave blank gaps")
	}
}

func TestTodayFragmentIsIntentScoped(t *testing.T) {
	t.Parallel()

	m := metrics.Metrics{
		Steps:           ptr(8000),
		DietaryCalories: ptr(1200),
		TotalCalories:   ptr(2000),
		DietaryProteinG: ptr(60),
		DietaryCarbsG:   ptr(120),
		SleepHours:      ptr(7),
	}

	tests := []struct {
		name      string
		in        intent.Intent
		flags     intent.Flags
		wantIn    []string
		wantNotIn []string
	}{
		{
			name:      "numbers without macro mention",
			in:        intent.Numbers,
			wantIn:    []string{"- Eaten: 1200 kcal", "- Burned: 2000 kcal", "- Net: -800 kcal"},
			wantNotIn: []string{"Macros today", "Sleep"},
		},
		{
			name:      "numbers with macro mention",
			in:        intent.Numbers,
			flags:     intent.Flags{MentionsMacros: true},
			wantIn:    []string{"- Macros today:", "  - Carbs: 120g"},
			wantNotIn: []string{"Sleep"},
		},
		{
			name:      "general",
			in:        intent.General,
			wantIn:    []string{"- Steps: 8000", "- Sleep: 7h", "- Readiness: "},
			wantNotIn: []string{"Macros today", "kcal"},
		},
		{
			name:      "quick log pulls in macros",
			in:        intent.General,
			flags:     intent.Flags{WantsQuickLog: true},
			wantIn:    []string{"- Macros today:", "log food fast"},
			wantNotIn: []string{"kcal"},
		},
		{
			name:      "meta feedback has no metrics",
			in:        intent.MetaFeedback,
			wantNotIn: []string{"Steps", "kcal", "Macros"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TodayFragment(Input{Metrics: m, Intent: tt.in, Flags: tt.flags, LocalHour: 9, Signals: signals.Signals{Readiness: signals.ReadinessGreen}})
			for _, s := range tt.wantIn {
				if !strings.Contains(got, s) {
					t.Errorf("missing %q in\n%s", s, got)
				}
			}
			for _, s := range tt.wantNotIn {
				if strings.Contains(got, s) {
					t.Errorf("unexpected %q in\n%s", s, got)
				}
			}
		})
	}
}

func TestHistoryFragment(t *testing.T) {
	t.Parallel()

	if got := HistoryFragment(nil); got != "" {
		t.Errorf("HistoryFragment(nil) = %q", got)
	}

	var turns []models.ChatTurn
	for i := 0; i < 20; i++ {
		role := models.ChatRoleUser
		if i%2 == 1 {
			role = models.ChatRoleAssistant
		}
		text := fmt.Sprintf("turn %d", i)
		if i == 15 {
			text = "   "
		}
		turns = append(turns, models.ChatTurn{Role: role, Text: text})
	}

	got := HistoryFragment(turns)
	lines := strings.Split(strings.TrimPrefix(got, "Recent conversation:\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("got %d lines, want 11 (12 turns minus one blank):\n%s", len(lines), got)
	}
	if lines[0] != "user: turn 8" {
		t.Errorf("first line = %q, want \"user: turn 8\"", lines[0])
	}
	if lines[len(lines)-1] != "assistant: turn 19" {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
	if strings.Contains(got, "turn 15") {
		t.Error("blank turn should be dropped")
	}
}

func TestRulesFragment(t *testing.T) {
	t.Parallel()

	text := RulesFragment(false)
	for _, want := range []string{"Never open with", "Never say you lack access", "exactly one mode", "follow-up question"} {
		if !strings.Contains(text, want) {
			t.Errorf("rules missing %q", want)
		}
	}
	if strings.Contains(text, "read aloud") {
		t.Error("voice rule should only appear for voice input")
	}
	if !strings.Contains(RulesFragment(true), "read aloud") {
		t.Error("voice input should add the no-lists rule")
	}
}

func TestSettingsFragment(t *testing.T) {
	t.Parallel()

	got := SettingsFragment(tone.Settings{Pressure: tone.PressureHigh, Tone: metrics.ToneSharp, Sharpness: tone.SharpnessSavage, PopCultureAllowed: true}, intent.Motivation)
	for _, want := range []string{"- Topic: motivation", "- Pressure: high", "- Tone: sharp (savage)", "pop-culture reference."} {
		if !strings.Contains(got, want) {
			t.Errorf("settings missing %q:\n%s", want, got)
		}
	}

	got = SettingsFragment(tone.Settings{Pressure: tone.PressureLow, Tone: metrics.ToneWarm, Sharpness: tone.SharpnessDirect}, intent.General)
	if strings.Contains(got, "direct") {
		t.Error("sharpness should only show for the sharp tone")
	}
}

func TestMemoryFragment(t *testing.T) {
	t.Parallel()

	if got := MemoryFragment(memory.Memory{}); got != "" {
		t.Errorf("empty memory rendered %q", got)
	}
	got := MemoryFragment(memory.Memory{DaysActive: 12, ProteinStreakDays: 4, Goal: "cut to 80kg", LastFeedbackSentiment: memory.SentimentTooMuchPressure})
	for _, want := range []string{"Days checked in: 12", "Protein goal streak: 4 days", "Goal: cut to 80kg", "pushed too hard"} {
		if !strings.Contains(got, want) {
			t.Errorf("memory missing %q:\n%s", want, got)
		}
	}
}

func TestPersonaFragment(t *testing.T) {
	t.Parallel()

	c := DefaultCatalogue()
	astro := c.Lookup("Astrology")
	got := PersonaFragment(astro, BirthDetails{Date: "1990-04-02", Place: "Lisbon"})
	if !strings.HasSuffix(got, "Birth details: born 1990-04-02 in Lisbon.") {
		t.Errorf("astrology persona missing birth details:\n%s", got)
	}

	coach := c.Lookup("coach")
	if strings.Contains(PersonaFragment(coach, BirthDetails{Date: "1990-04-02"}), "Birth details") {
		t.Error("birth details should only be used by personas that ask for them")
	}
}

func ptr(v float64) *float64 { return &v }

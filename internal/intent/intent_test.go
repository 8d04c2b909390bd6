package intent

import (
	"testing"

	"github.com/benvon/insight-coach/internal/metrics"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		question string
		want     Intent
	}{
		{question: "You're being too harsh with me", want: MetaFeedback},
		{question: "Stop roasting me about calories", want: MetaFeedback},
		{question: "Why are you giving me the same answers?", want: MetaFeedback},
		{question: "Look at my calories and roast me", want: Motivation},
		{question: "How many calories do I have left?", want: Numbers},
		{question: "Am I in a deficit today?", want: Numbers},
		{question: "What should I eat for dinner?", want: Food},
		{question: "Ideas for a high protein snack", want: Food},
		{question: "Roast me", want: Motivation},
		{question: "I need tough love today", want: Motivation},
		{question: "How am I doing this week?", want: Progress},
		{question: "Give me a recap", want: Progress},
		{question: "Tell me something interesting", want: General},
		{question: "", want: General},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.question); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.question, got, tt.want)
			}
		})
	}
}

func TestClassifyPrecedenceTable(t *testing.T) {
	t.Parallel()

	if rules[0].intent != MetaFeedback {
		t.Errorf("first rule = %s, want meta_feedback", rules[0].intent)
	}
	if rules[1].intent != Motivation || len(rules[1].all) != 2 {
		t.Error("second rule should require both the numbers and motivation cues")
	}
	if rules[2].intent != Numbers {
		t.Errorf("third rule = %s, want numbers", rules[2].intent)
	}
}

func TestDetectFlags(t *testing.T) {
	t.Parallel()

	kcal := func(v float64) metrics.Metrics { return metrics.Metrics{DietaryCalories: &v} }

	tests := []struct {
		name     string
		question string
		m        metrics.Metrics
		validate func(*testing.T, Flags)
	}{
		{
			name:     "profile query",
			question: "What's my height?",
			validate: func(t *testing.T, f Flags) {
				if !f.ProfileQuery || !f.AskedQuestion {
					t.Errorf("expected profile query and question, got %+v", f)
				}
			},
		},
		{
			name:     "weight loss is not a profile query",
			question: "help me lose weight",
			validate: func(t *testing.T, f Flags) {
				if f.ProfileQuery || f.AskedQuestion {
					t.Errorf("unexpected flags %+v", f)
				}
			},
		},
		{
			name:     "recovery query",
			question: "How did I sleep and what's my HRV",
			validate: func(t *testing.T, f Flags) {
				if !f.RecoveryQuery {
					t.Error("expected recovery query")
				}
				if f.AskedQuestion {
					t.Error("no trailing question mark, AskedQuestion should be false")
				}
			},
		},
		{
			name:     "unlogged food with little logged",
			question: "I ate a burrito",
			m:        kcal(500),
			validate: func(t *testing.T, f Flags) {
				if !f.LikelyUnloggedFood {
					t.Error("expected likely unlogged food")
				}
			},
		},
		{
			name:     "food mention with plenty logged",
			question: "I ate a burrito",
			m:        kcal(1800),
			validate: func(t *testing.T, f Flags) {
				if f.LikelyUnloggedFood {
					t.Error("did not expect likely unlogged food")
				}
			},
		},
		{
			name:     "quick log and macros",
			question: "just had chicken, log it. how are my macros?",
			validate: func(t *testing.T, f Flags) {
				if !f.WantsQuickLog || !f.MentionsMacros || !f.LikelyUnloggedFood {
					t.Errorf("unexpected flags %+v", f)
				}
			},
		},
		{
			name:     "planning and low mood",
			question: "I'm exhausted, going to train tonight",
			validate: func(t *testing.T, f Flags) {
				if !f.PlanningLater || !f.LowMood {
					t.Errorf("unexpected flags %+v", f)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.validate(t, DetectFlags(tt.question, tt.m))
		})
	}
}

func TestIsAcknowledgement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text         string
		wantAck      bool
		wantNegative bool
	}{
		{text: "meh", wantAck: true, wantNegative: true},
		{text: "  Ugh. ", wantAck: true, wantNegative: true},
		{text: "lol", wantAck: true},
		{text: "Fair!", wantAck: true},
		{text: "thanks", wantAck: true},
		{text: "hahaha", wantAck: true},
		{text: "ok what should I eat", wantAck: false},
		{text: "meh, what now?", wantAck: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			ack, negative := IsAcknowledgement(tt.text)
			if ack != tt.wantAck || negative != tt.wantNegative {
				t.Errorf("IsAcknowledgement(%q) = (%v, %v), want (%v, %v)", tt.text, ack, negative, tt.wantAck, tt.wantNegative)
			}
		})
	}
}

func TestIsMotivationCue(t *testing.T) {
	t.Parallel()

	if !IsMotivationCue("roast me") {
		t.Error("expected roast me to be a motivation cue")
	}
	if IsMotivationCue("you're too harsh") {
		t.Error("meta feedback should not count as a motivation cue")
	}
}

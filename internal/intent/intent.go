// Package intent classifies a question into a topic and a set of
// independent flags. Classification is a pure function of the text (and,
// for one flag, today's metrics); the rule tables below define precedence.
package intent

import (
	"regexp"
	"strings"

	"github.com/benvon/insight-coach/internal/metrics"
)

// Intent is the topic a question is about
type Intent string

const (
	MetaFeedback Intent = "meta_feedback"
	Numbers      Intent = "numbers"
	Food         Intent = "food"
	Motivation   Intent = "motivation"
	Progress     Intent = "progress"
	General      Intent = "general"
)

// Flags are computed independently of the intent
type Flags struct {
	ProfileQuery       bool `json:"profileQuery"`
	RecoveryQuery      bool `json:"recoveryQuery"`
	WantsQuickLog      bool `json:"wantsQuickLog"`
	LikelyUnloggedFood bool `json:"likelyUnloggedFood"`
	PlanningLater      bool `json:"planningLater"`
	LowMood            bool `json:"lowMood"`
	AskedQuestion      bool `json:"askedQuestion"`
	MentionsMacros     bool `json:"mentionsMacros"`
}

func re(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + pattern)
}

var (
	metaFeedbackCue = re(`too harsh|too mean|stop roasting|same answers?|repetitive|you keep saying|feedback|why are you|ease up|back off`)
	numbersCue      = re(`\b(calories?|kcals?|macros?|deficit|surplus|maintenance|tdee|bmr|math|numbers|how many|how much)\b`)
	motivationCue   = re(`\broast\b|\broasting\b|push me|motivat|be harsh|harsh(er)?\b|tough love|kick my|yell at me|no excuses|hype me|light a fire|call me out`)
	foodCue         = re(`\b(breakfast|brunch|lunch|dinner|supper|snacks?|meals?|dessert|recipe|hungry|food|what (should|can|do) i eat|what to eat)\b`)
	progressCue     = re(`how am i doing|how('?m| am) i tracking|\brecap\b|\bprogress\b|\bsummary\b|on track|so far|this week`)
)

// rule matches when every pattern matches
type rule struct {
	intent Intent
	all    []*regexp.Regexp
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{intent: MetaFeedback, all: []*regexp.Regexp{metaFeedbackCue}},
	{intent: Motivation, all: []*regexp.Regexp{numbersCue, motivationCue}},
	{intent: Numbers, all: []*regexp.Regexp{numbersCue}},
	{intent: Food, all: []*regexp.Regexp{foodCue}},
	{intent: Motivation, all: []*regexp.Regexp{motivationCue}},
	{intent: Progress, all: []*regexp.Regexp{progressCue}},
}

// Classify returns the intent of question, General when no rule matches.
func Classify(question string) Intent {
	for _, r := range rules {
		if matchesAll(question, r.all) {
			return r.intent
		}
	}
	return General
}

func matchesAll(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if !p.MatchString(text) {
			return false
		}
	}
	return true
}

// IsMotivationCue reports whether text asks to be pushed or roasted,
// regardless of what else it mentions.
func IsMotivationCue(text string) bool {
	return motivationCue.MatchString(text) && !metaFeedbackCue.MatchString(text)
}

var (
	profileQueryCue = re(`what('?s| is| are) my (height|weight|age|stats|measurements)|how (tall|old) am i|how much do i weigh|(tell|remind) me my (height|weight|age)|do you (know|have) my (height|weight|age)`)
	recoveryCue     = re(`\b(sleep|slept|hrv|heart rate variability|resting heart rate|rhr|recovery|recovered|readiness|am i ready)\b`)
	quickLogCue     = re(`quick ?log|\blog (this|it|that|my)\b|\bjust (ate|had)\b|\badd (this|it) to\b|\btrack (this|that|my meal)\b`)
	ateCue          = re(`\b(ate|eaten|eating|just had|had (a|an|some)|snacked|munched|drank)\b`)
	planningCue     = re(`\b(later|tonight|tomorrow|this evening|after (work|the gym)|planning|plan to|going to|gonna)\b`)
	lowMoodCue      = re(`\b(tired|exhausted|drained|stressed|anxious|anxiety|sad|depressed|overwhelmed|burn(ed|t)? out|rough day|lonely|sick|awful)\b`)
	macrosCue       = re(`\b(macros?|carbs?|carbohydrates?|fats?|fiber|fibre|protein)\b`)
)

// Unlogged-food suspicion only applies while logged intake stays under this.
const unloggedFoodCalorieCeiling = 800

// DetectFlags computes the boolean flags for question.
func DetectFlags(question string, m metrics.Metrics) Flags {
	return Flags{
		ProfileQuery:  profileQueryCue.MatchString(question),
		RecoveryQuery: recoveryCue.MatchString(question),
		WantsQuickLog: quickLogCue.MatchString(question),
		LikelyUnloggedFood: ateCue.MatchString(question) &&
			(m.DietaryCalories == nil || *m.DietaryCalories < unloggedFoodCalorieCeiling),
		PlanningLater:  planningCue.MatchString(question),
		LowMood:        lowMoodCue.MatchString(question),
		AskedQuestion:  IsQuestion(question),
		MentionsMacros: macrosCue.MatchString(question),
	}
}

// IsQuestion reports whether text ends with a question mark.
func IsQuestion(text string) bool {
	return strings.HasSuffix(strings.TrimSpace(text), "?")
}

var (
	acknowledgementCue = re(`^(meh|lol|lmao|ha(ha)+|fair|fair enough|ok|okay|k|kk|cool|nice|thanks|thank you|thx|ty|ugh|nope|whatever|bruh|sure|got it|true|yep|yeah|noted|word)[.!]*$`)
	negativeAckCue     = re(`^(meh|ugh|nope|whatever|bruh)[.!]*$`)
)

// IsAcknowledgement reports whether text is a short reaction rather than a
// request, and whether that reaction reads as negative.
func IsAcknowledgement(text string) (ack bool, negative bool) {
	t := strings.TrimSpace(text)
	if !acknowledgementCue.MatchString(t) {
		return false, false
	}
	return true, negativeAckCue.MatchString(t)
}

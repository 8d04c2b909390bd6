// Package reply post-processes completion text before it reaches the user.
package reply

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/metrics"
	"github.com/benvon/insight-coach/internal/models"
)

// DefaultProteinPerMeal replaces a protein range when no per-meal number
// could be computed.
const DefaultProteinPerMeal = 30

// Replies to a short acknowledgement
const (
	AckReply        = "Got it. I'm here when you want the next move."
	AckEaseOffReply = "Fair. I'll ease off. Say the word when you want the next move."
)

// BannedOpeners are stock phrases a reply must not start with.
var BannedOpeners = []string{
	"Great question",
	"Good question",
	"As an AI",
	"Absolutely",
	"Certainly",
	"Of course",
	"Honestly",
	"Alright",
	"Okay so",
	"Listen",
	"Look",
	"Well",
	"Let's be real",
	"Hey there",
}

// minRoastLength is the shortest roast kept as-is; anything shorter is
// replaced by a synthesized one.
const minRoastLength = 25

var (
	gramRangePattern    = regexp.MustCompile(`(?i)\b\d{1,3}\s*(?:g|grams?)?\s*(?:-|–|—|to)\s*\d{1,3}\s*(?:g\b|grams?\b)`)
	proteinWordPattern  = regexp.MustCompile(`(?i)\bproteins?\b`)
	nutrientWordPattern = regexp.MustCompile(`(?i)\b(?:carbs?|carbohydrates?|fats?|fib(?:er|re)s?|sugars?|sodium|salt|caffeine|alcohol)\b`)
	pivotPattern        = regexp.MustCompile(`(?i)\b(but hey|just remember|but remember|that said|but don't worry|on the bright side|the good news is|you've got this|you got this)\b`)
)

// Context is what the sanitizer knows about the request
type Context struct {
	Question       string
	Intent         intent.Intent
	AskedQuestion  bool
	ProteinPerMeal *int
	Metrics        metrics.Metrics
	History        []models.ChatTurn
}

// Sanitize applies, in order: the acknowledgement bypass, protein range
// replacement, question stripping when the user did not ask one, and roast
// shaping for motivation requests.
func Sanitize(raw string, c Context) string {
	if text, ok := Acknowledge(c.Question, c.History); ok {
		return text
	}

	text := strings.TrimSpace(raw)
	text = ReplaceProteinRange(text, c.ProteinPerMeal)
	if !c.AskedQuestion {
		text = StripQuestions(text)
	}
	if c.Intent == intent.Motivation {
		text = ShapeRoast(text, c.Metrics)
	}
	return text
}

// Acknowledge returns a fixed reply when question is a short reaction to a
// previous assistant turn. A negative reaction to a roast gets the ease-off
// reply.
func Acknowledge(question string, history []models.ChatTurn) (string, bool) {
	ack, negative := intent.IsAcknowledgement(question)
	if !ack {
		return "", false
	}

	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.ChatRoleAssistant && strings.TrimSpace(history[i].Text) != "" {
			last = i
			break
		}
	}
	if last < 0 {
		return "", false
	}

	if negative && wasRoast(history[:last]) {
		return AckEaseOffReply, true
	}
	return AckReply, true
}

// wasRoast reports whether the user turn preceding an assistant reply asked
// for a roast.
func wasRoast(before []models.ChatTurn) bool {
	for i := len(before) - 1; i >= 0; i-- {
		if before[i].Role == models.ChatRoleUser {
			return intent.IsMotivationCue(before[i].Text)
		}
	}
	return false
}

// ReplaceProteinRange swaps stock protein ranges such as "25-40g of
// protein" or "25 to 40 grams" for a single number. Ranges that belong to
// another nutrient are left alone.
func ReplaceProteinRange(text string, perMeal *int) string {
	grams := DefaultProteinPerMeal
	if perMeal != nil {
		grams = *perMeal
	}
	replacement := fmt.Sprintf("%dg", grams)

	var b strings.Builder
	last := 0
	for _, loc := range gramRangePattern.FindAllStringIndex(text, -1) {
		if !isProteinRange(text, loc[0], loc[1]) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(replacement)
		last = loc[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// isProteinRange decides by the nearest nutrient word: first the few words
// after the range, then the rest of its sentence before it.
func isProteinRange(text string, start, end int) bool {
	after := leadingWords(sentenceTail(text[end:]), 4)
	if p, o := firstIndex(proteinWordPattern, after), firstIndex(nutrientWordPattern, after); p >= 0 || o >= 0 {
		return p >= 0 && (o < 0 || p < o)
	}

	before := sentenceHead(text[:start])
	return lastIndex(proteinWordPattern, before) > lastIndex(nutrientWordPattern, before)
}

func sentenceTail(s string) string {
	if i := strings.IndexAny(s, ".!?\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func sentenceHead(s string) string {
	if i := strings.LastIndexAny(s, ".!?\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func leadingWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func firstIndex(re *regexp.Regexp, s string) int {
	if loc := re.FindStringIndex(s); loc != nil {
		return loc[0]
	}
	return -1
}

func lastIndex(re *regexp.Regexp, s string) int {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return -1
	}
	return locs[len(locs)-1][0]
}

// QuestionsOnlyFallback replaces a reply made only of questions when the
// user did not ask one.
const QuestionsOnlyFallback = "Keep today simple and hit your protein target."

// StripQuestions drops every sentence ending in "?". Text made only of
// questions becomes QuestionsOnlyFallback. Applying it twice gives the same
// result as applying it once.
func StripQuestions(text string) string {
	sentences := splitSentences(text)
	kept := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if !isQuestionSentence(s) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		if len(sentences) == 0 {
			return strings.TrimSpace(text)
		}
		return QuestionsOnlyFallback
	}
	return strings.TrimSpace(strings.Join(kept, ""))
}

// CapSentences keeps at most n sentences or lines.
func CapSentences(text string, n int) string {
	sentences := splitSentences(text)
	if len(sentences) <= n {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.Join(sentences[:n], ""))
}

// ShapeRoast cuts a roast at its first softening pivot, removes stock
// openers, synthesizes a replacement when too little is left, and caps the
// result at two sentences.
func ShapeRoast(text string, m metrics.Metrics) string {
	if loc := pivotPattern.FindStringIndex(text); loc != nil {
		text = strings.TrimRight(strings.TrimSpace(text[:loc[0]]), ",;:-–— ")
		if text != "" && !strings.ContainsAny(text[len(text)-1:], ".!?") {
			text += "."
		}
	}

	text = StripOpeners(text)
	if utf8.RuneCountInString(text) < minRoastLength {
		text = SynthesizeRoast(m)
	}
	return CapSentences(text, 2)
}

// StripOpeners removes banned openers from the start of text, repeatedly,
// and re-capitalizes what remains.
func StripOpeners(text string) string {
	text = strings.TrimSpace(text)
	for {
		stripped := false
		for _, opener := range BannedOpeners {
			if rest, ok := cutOpener(text, opener); ok {
				text = rest
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}
	return capitalize(text)
}

func cutOpener(text, opener string) (string, bool) {
	if len(text) < len(opener) || !strings.EqualFold(text[:len(opener)], opener) {
		return text, false
	}
	rest := text[len(opener):]
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		return text, false
	}
	return strings.TrimLeftFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}), true
}

// SynthesizeRoast builds a two-sentence roast from steps, net calories and
// protein.
func SynthesizeRoast(m metrics.Metrics) string {
	var facts []string
	if m.Steps != nil {
		facts = append(facts, fmt.Sprintf("%s steps", thousands(*m.Steps)))
	}
	if net := m.NetCalories(); net != nil {
		n := int(math.Round(*net))
		switch {
		case n > 0:
			facts = append(facts, fmt.Sprintf("a %d kcal surplus", n))
		case n < 0:
			facts = append(facts, fmt.Sprintf("a %d kcal deficit", -n))
		}
	}

	first := "Nothing logged means nothing earned."
	if len(facts) > 0 {
		first = "You're sitting at " + strings.Join(facts, " and ") + ", and that is not a highlight reel."
	}

	second := "Get up and move for twenty minutes, now."
	switch {
	case m.ProteinRemainingG != nil && *m.ProteinRemainingG > 0:
		second = fmt.Sprintf("Go find %dg of protein before the day ends.", int(math.Round(*m.ProteinRemainingG)))
	case m.DietaryProteinG != nil:
		second = fmt.Sprintf("%dg of protein is not building anything, so fix it at the next meal.", int(math.Round(*m.DietaryProteinG)))
	}
	return first + " " + second
}

// splitSentences breaks text after runs of ".", "!" or "?" that are followed
// by whitespace or the end, and after newlines. Each piece keeps its
// trailing whitespace so joining the pieces restores the text.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\n':
			j := skipSpace(text, i+1)
			out = append(out, text[start:j])
			start = j
			i = j - 1
		case c == '.' || c == '!' || c == '?':
			j := i + 1
			for j < len(text) && strings.IndexByte(`.!?"')`, text[j]) >= 0 {
				j++
			}
			if j == len(text) || isSpace(text[j]) {
				j = skipSpace(text, j)
				out = append(out, text[start:j])
				start = j
			}
			i = j - 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isQuestionSentence(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), `"')`)
	return strings.HasSuffix(s, "?")
}

func skipSpace(text string, i int) int {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func thousands(v float64) string {
	n := int(math.Round(v))
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

package units

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxRulePoints is the fixed denominator raw points are normalized against.
// The checks themselves award at most 62, so a draft passing every rule
// scores 89.
const MaxRulePoints = 70

// Keyword sets matched case-insensitively as substrings of the body.
var (
	ValueKeywords      = []string{"increase", "reduce", "improve", "optimize", "automation", "agentic", "efficiency"}
	RelevanceKeywords  = []string{"your team", "your agency", "as the ceo", "marketing team"}
	PersuasionKeywords = []string{"imagine", "picture this", "what if", "you could"}
	CTAKeywords        = []string{"schedule", "call", "quick chat", "available", "meet"}
)

// PlaceholderToken marks an unfilled template slot such as "[Your Name]".
const PlaceholderToken = "[your"

const minCapitalizedWords = 5

var capitalizedWord = regexp.MustCompile(`[A-Z][a-z]+`)

// RuleCheck is the outcome of one heuristic.
type RuleCheck struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Max    int    `json:"max"`
}

// RuleBreakdown lists every heuristic applied to a draft plus the totals.
type RuleBreakdown struct {
	Checks []RuleCheck `json:"checks"`
	Raw    int         `json:"raw"`
	Score  int         `json:"score"`
}

// ScoreRules returns the deterministic 0..100 quality score of an email.
// The subject is accepted for symmetry with the judge and is not scored.
func ScoreRules(subject, body string) int {
	return EvaluateRules(subject, body).Score
}

// EvaluateRules applies every heuristic to body and reports the points each
// one awarded. It never fails; empty input yields a low but valid score.
func EvaluateRules(_ string, body string) RuleBreakdown {
	folded := foldText(body)
	words := len(strings.Fields(body))

	checks := []RuleCheck{
		{Name: "clarity", Points: clarityPoints(words), Max: 10},
		{Name: "value_proposition", Points: pointsIf(containsAny(folded, ValueKeywords), 10), Max: 10},
		{Name: "relevance", Points: pointsIf(containsAny(folded, RelevanceKeywords), 10), Max: 10},
		{Name: "persuasiveness", Points: pointsIf(containsAny(folded, PersuasionKeywords), 7), Max: 7},
		{Name: "personalization", Points: pointsIf(!strings.Contains(folded, PlaceholderToken), 5), Max: 5},
		{Name: "professionalism", Points: pointsIf(len(capitalizedWord.FindAllStringIndex(body, minCapitalizedWords)) >= minCapitalizedWords, 7), Max: 7},
		{Name: "structure", Points: pointsIf(hasParagraphBreak(body), 5), Max: 5},
		{Name: "call_to_action", Points: pointsIf(containsAny(folded, CTAKeywords), 8), Max: 8},
	}

	raw := 0
	for _, c := range checks {
		raw += c.Points
	}

	return RuleBreakdown{Checks: checks, Raw: raw, Score: normalizeRaw(raw)}
}

func clarityPoints(words int) int {
	switch {
	case words >= 60 && words <= 180:
		return 10
	case words >= 40 && words <= 220:
		return 7
	default:
		return 4
	}
}

func normalizeRaw(raw int) int {
	score := int(math.Round(float64(raw) / MaxRulePoints * 100))
	return min(max(score, 0), 100)
}

func pointsIf(ok bool, points int) int {
	if ok {
		return points
	}
	return 0
}

// foldText lowercases s with the full Unicode mapping. Compatibility forms
// such as ligatures and full-width letters are left as they are.
func foldText(s string) string {
	return cases.Lower(language.Und).String(s)
}

func containsAny(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

func hasParagraphBreak(body string) bool {
	return strings.Contains(body, "\n\n") || strings.Contains(body, "\r\n\r\n")
}

package units

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-pitch/internal/testutils"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestScoreRules(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		// clarity 4 + personalization 5 = 9 -> round(12.86)
		{name: "empty body", body: "", want: 13},
		{name: "single word", body: "hello", want: 13},
		// clarity 10 + personalization 5 = 15 -> round(21.43)
		{name: "sweet spot length only", body: words(100), want: 21},
		// clarity 7 + personalization 5 = 12 -> round(17.14)
		{name: "wide band length", body: words(50), want: 17},
		{name: "just above wide band", body: words(221), want: 13},
		{name: "placeholder costs personalization", body: "Hi [Your Name]", want: 6},
		{name: "placeholder match ignores case", body: "Hi [YOUR NAME]", want: 6},
		// every check passes: 62 -> round(88.57)
		{name: "every check passes", body: testutils.SampleDraft, want: 89},
		{name: "ligature is not a keyword", body: "eﬃciency", want: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreRules("Agentic AI to help your team", tt.body)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestScoreRules_SubjectIsIgnored(t *testing.T) {
	assert.Equal(t, ScoreRules("", "hello"), ScoreRules("Imagine automation for your team", "hello"))
}

func TestScoreRules_Deterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, 89, ScoreRules("s", testutils.SampleDraft))
	}
}

func TestEvaluateRules_Checks(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check string
		want  int
	}{
		{name: "value keyword", body: "We optimize pipelines", check: "value_proposition", want: 10},
		{name: "value keyword case insensitive", body: "AUTOMATION everywhere", check: "value_proposition", want: 10},
		{name: "full width is not folded", body: "ＡＧＥＮＴＩＣ tools", check: "value_proposition", want: 0},
		{name: "ligature is not folded", body: "eﬃciency", check: "value_proposition", want: 0},
		{name: "no value keyword", body: "Hello there", check: "value_proposition", want: 0},
		{name: "relevance", body: "As the CEO you know", check: "relevance", want: 10},
		{name: "persuasion", body: "Picture this: a calm inbox", check: "persuasiveness", want: 7},
		{name: "cta substring", body: "Let us meet soon", check: "call_to_action", want: 8},
		{name: "no cta", body: "Thanks", check: "call_to_action", want: 0},
		{name: "five capitalized words", body: "Alpha Beta Gamma Delta Epsilon", check: "professionalism", want: 7},
		{name: "four capitalized words", body: "Alpha Beta Gamma Delta", check: "professionalism", want: 0},
		{name: "acronyms do not count", body: "CEO CTO CFO COO CMO", check: "professionalism", want: 0},
		{name: "blank line", body: "Hi\n\nThere", check: "structure", want: 5},
		{name: "crlf blank line", body: "Hi\r\n\r\nThere", check: "structure", want: 5},
		{name: "single newline", body: "Hi\nThere", check: "structure", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := EvaluateRules("", tt.body)
			var found bool
			for _, c := range b.Checks {
				if c.Name == tt.check {
					found = true
					assert.Equal(t, tt.want, c.Points)
				}
			}
			require.True(t, found, "check %s not reported", tt.check)
		})
	}
}

func TestEvaluateRules_MaxBelowDenominator(t *testing.T) {
	b := EvaluateRules("", "")
	total := 0
	for _, c := range b.Checks {
		total += c.Max
	}
	assert.Equal(t, 62, total)
	assert.Equal(t, 70, MaxRulePoints)
	assert.Equal(t, 9, b.Raw)
	assert.Equal(t, 13, b.Score)

	full := EvaluateRules("", testutils.SampleDraft)
	for _, c := range full.Checks {
		assert.Equal(t, c.Max, c.Points, c.Name)
	}
	assert.Equal(t, 62, full.Raw)
	assert.Equal(t, 89, full.Score)
}

func TestScoreRules_VeryLongInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		// clarity 4 + personalization 5 = 9
		{name: "million words", body: words(1_000_000), want: 13},
		// every check but clarity: 56 -> 80
		{name: "repeated draft", body: strings.Repeat(testutils.SampleDraft+"\n\n", 2000), want: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreRules("", tt.body)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

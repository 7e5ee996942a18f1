package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredWith(finals ...int) []ScoredDraft {
	out := make([]ScoredDraft, len(finals))
	for i, f := range finals {
		out[i] = ScoredDraft{AgentIndex: i + 1, Score: Score{FinalScore: f}}
	}
	return out
}

func TestStableMax_Select(t *testing.T) {
	tests := []struct {
		name      string
		scored    []ScoredDraft
		wantAgent int
		wantScore int
	}{
		{name: "single candidate", scored: scoredWith(40), wantAgent: 1, wantScore: 40},
		{name: "clear winner in the middle", scored: scoredWith(62, 80, 71), wantAgent: 2, wantScore: 80},
		{name: "tie resolves to first index", scored: scoredWith(75, 75, 70), wantAgent: 1, wantScore: 75},
		{name: "later tie does not displace earlier max", scored: scoredWith(10, 90, 90), wantAgent: 2, wantScore: 90},
		{name: "all equal", scored: scoredWith(37, 37, 37), wantAgent: 1, wantScore: 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StableMax{}.Select(tt.scored)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAgent, got.AgentIndex)
			assert.Equal(t, tt.wantScore, got.Score.FinalScore)
		})
	}
}

func TestStableMax_SelectEmpty(t *testing.T) {
	_, err := StableMax{}.Select(nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationResult_Draft(t *testing.T) {
	ok := GenerationResult{AgentIndex: 1, Persona: "Professional", Text: "Hello"}
	assert.True(t, ok.OK())
	assert.Equal(t, Draft{AgentIndex: 1, Persona: "Professional", Text: "Hello"}, ok.Draft())

	failed := GenerationResult{AgentIndex: 2, Persona: "Concise", Text: "partial", Err: errors.New("timeout")}
	assert.False(t, failed.OK())
	assert.Equal(t, "", failed.Draft().Text, "Failed generations must produce an empty draft.")
	assert.Equal(t, 2, failed.Draft().AgentIndex)
}

func TestJudgeResult_ScoreOr(t *testing.T) {
	assert.Equal(t, 85, JudgeResult{TotalScore: 85}.ScoreOr(50))
	assert.Equal(t, 0, JudgeResult{TotalScore: 0}.ScoreOr(50), "A judged zero is a real score.")
	assert.Equal(t, 50, JudgeResult{TotalScore: 99, Err: errors.New("malformed")}.ScoreOr(50))
}

// TestRunResult_JSONShape pins the field names consumers depend on.
func TestRunResult_JSONShape(t *testing.T) {
	result := RunResult{
		RunID:       "run-1",
		ChosenAgent: 2,
		Score:       80,
		ScoredDetails: []ScoredDraft{
			{AgentIndex: 1, Text: "a", Score: Score{FinalScore: 62, RuleScore: 80, LLMScore: 50}},
		},
		Costs:     CostSummary{Calls: 3, EstimatedCost: 0.006},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, float64(2), decoded["chosen_agent"])
	assert.Equal(t, float64(80), decoded["score"])
	assert.Equal(t, "run-1", decoded["run_id"])

	costs := decoded["costs"].(map[string]any)
	assert.Equal(t, float64(3), costs["calls"])
	assert.Equal(t, 0.006, costs["estimated_cost"])

	details := decoded["scored_details"].([]any)
	require.Len(t, details, 1)
	first := details[0].(map[string]any)
	assert.Equal(t, float64(1), first["agent_index"])
	score := first["score"].(map[string]any)
	assert.Equal(t, float64(62), score["final_score"])
	assert.Equal(t, float64(80), score["rule_score"])
	assert.Equal(t, float64(50), score["llm_score"])
}

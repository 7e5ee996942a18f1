package domain

import "time"

// Persona describes one drafting style. Each persona produces exactly one
// draft per run.
type Persona struct {
	// Name is a short human readable label such as "Professional".
	Name string `json:"name" yaml:"name" validate:"required"`

	// Instructions are sent as the system prompt for this persona.
	Instructions string `json:"instructions" yaml:"instructions" validate:"required"`

	// Model is the provider/model spec used to generate this persona's draft.
	Model string `json:"model" yaml:"model" validate:"required,modelformat"`
}

// Draft is the output of one persona. Text is empty when generation failed.
type Draft struct {
	// AgentIndex is 1-based and follows persona submission order.
	AgentIndex int    `json:"agent_index"`
	Persona    string `json:"persona"`
	Text       string `json:"text"`
}

// Score holds the three integer scores computed for a draft.
// All values are in [0, 100].
type Score struct {
	FinalScore int `json:"final_score"`
	RuleScore  int `json:"rule_score"`
	LLMScore   int `json:"llm_score"`
}

// ScoredDraft pairs a draft with its hybrid score.
type ScoredDraft struct {
	AgentIndex int    `json:"agent_index"`
	Text       string `json:"text"`
	Score      Score  `json:"score"`
}

// CostSummary is a snapshot of the run's cost ledger.
type CostSummary struct {
	Calls         int     `json:"calls"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// RunResult is the complete report for one run.
type RunResult struct {
	RunID         string        `json:"run_id"`
	ChosenAgent   int           `json:"chosen_agent"`
	Score         int           `json:"score"`
	ScoredDetails []ScoredDraft `json:"scored_details"`
	Costs         CostSummary   `json:"costs"`
	CreatedAt     time.Time     `json:"created_at"`
}

// GenerationResult is the explicit outcome of one persona's generation
// attempt. A failed attempt carries Err and an empty Text.
type GenerationResult struct {
	AgentIndex int
	Persona    string
	Text       string
	Err        error
}

// OK reports whether generation produced a draft.
func (r GenerationResult) OK() bool { return r.Err == nil }

// Draft converts the result into the draft that flows into scoring.
// Failed generations become empty drafts so that they are still scored.
func (r GenerationResult) Draft() Draft {
	text := r.Text
	if !r.OK() {
		text = ""
	}
	return Draft{AgentIndex: r.AgentIndex, Persona: r.Persona, Text: text}
}

// JudgeResult is the explicit outcome of one judge call.
type JudgeResult struct {
	TotalScore int
	Reasoning  string
	Err        error
}

// OK reports whether the judge returned a usable score.
func (r JudgeResult) OK() bool { return r.Err == nil }

// ScoreOr returns the judged score, or fallback when judging failed.
func (r JudgeResult) ScoreOr(fallback int) int {
	if !r.OK() {
		return fallback
	}
	return r.TotalScore
}

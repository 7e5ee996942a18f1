package units

import (
	"context"
	"fmt"

	"github.com/ahrav/go-pitch/internal/domain"
)

// Judger grades an email. Implementations must not fail loudly: failures are
// carried in the returned result.
type Judger interface {
	Judge(ctx context.Context, subject, body string) domain.JudgeResult
}

// RuleFunc computes the deterministic rule score of an email.
type RuleFunc func(subject, body string) int

// ScoringConfig holds the hybrid weights as integer percentages.
type ScoringConfig struct {
	RuleWeight    int `yaml:"rule_weight" json:"rule_weight" validate:"min=0,max=100"`
	JudgeWeight   int `yaml:"judge_weight" json:"judge_weight" validate:"min=0,max=100"`
	FallbackScore int `yaml:"fallback_score" json:"fallback_score" validate:"min=0,max=100"`
}

// DefaultScoringConfig returns the 40/60 split with a fallback of 50.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		RuleWeight:    DefaultRuleWeight,
		JudgeWeight:   DefaultJudgeWeight,
		FallbackScore: DefaultFallbackScore,
	}
}

// HybridScorer merges the rule score and the judge score into one final
// score. It never fails.
type HybridScorer struct {
	rules  RuleFunc
	judge  Judger
	config ScoringConfig
}

// NewHybridScorer creates a scorer. A nil rules func uses ScoreRules.
func NewHybridScorer(rules RuleFunc, judge Judger, config ScoringConfig) (*HybridScorer, error) {
	if judge == nil {
		return nil, fmt.Errorf("%w: judge is required", ErrConfigValidation)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	if config.RuleWeight+config.JudgeWeight != 100 {
		return nil, fmt.Errorf("%w: weights must sum to 100, got %d",
			ErrConfigValidation, config.RuleWeight+config.JudgeWeight)
	}
	if rules == nil {
		rules = ScoreRules
	}
	return &HybridScorer{rules: rules, judge: judge, config: config}, nil
}

// Score computes the rule score, then always asks the judge, then combines
// them as floor(rule*w_rule + judge*w_judge).
func (h *HybridScorer) Score(ctx context.Context, subject, body string) domain.Score {
	rule := h.rules(subject, body)
	llmScore := h.judge.Judge(ctx, subject, body).ScoreOr(h.config.FallbackScore)
	return domain.Score{
		FinalScore: Combine(rule, llmScore, h.config.RuleWeight, h.config.JudgeWeight),
		RuleScore:  rule,
		LLMScore:   llmScore,
	}
}

// Combine applies percentage weights. Integer division floors the result
// for the non-negative inputs used here.
func Combine(rule, judge, ruleWeight, judgeWeight int) int {
	return (rule*ruleWeight + judge*judgeWeight) / 100
}

package units

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

var _ ports.Unit = (*ScoreUnit)(nil)

// MetricDraftScore is the histogram of scores per draft, labelled by
// component (final, rule, llm).
const MetricDraftScore = "pitch_draft_score"

// Scorer produces a hybrid score for a subject and body.
type Scorer interface {
	Score(ctx context.Context, subject, body string) domain.Score
}

// ScoreUnitConfig configures the scoring stage.
type ScoreUnitConfig struct {
	// Subject is used when the state carries no subject line.
	Subject string `yaml:"subject" json:"subject"`

	// MaxConcurrency limits parallel judge calls. 1 scores sequentially.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=1,max=20"`
}

// ScoreUnit scores every draft against the run's subject line. Results are
// written by index, so the output order always matches agent_index order.
type ScoreUnit struct {
	name    string
	scorer  Scorer
	config  ScoreUnitConfig
	metrics ports.MetricsCollector
}

// NewScoreUnit creates the scoring stage. metrics may be nil.
func NewScoreUnit(name string, scorer Scorer, config ScoreUnitConfig, metrics ports.MetricsCollector) (*ScoreUnit, error) {
	if name == "" {
		return nil, ErrUnitNameEmpty
	}
	if scorer == nil {
		return nil, fmt.Errorf("%w: scorer is required", ErrConfigValidation)
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = DefaultScoreConcurrency
	}
	if config.Subject == "" {
		config.Subject = DefaultPlaceholderSubject
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	return &ScoreUnit{name: name, scorer: scorer, config: config, metrics: metrics}, nil
}

// Name returns the unit name.
func (u *ScoreUnit) Name() string { return u.name }

// Execute scores the drafts from state and stores the scored drafts.
// Scoring never fails; only cancellation of ctx is returned.
func (u *ScoreUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	drafts, ok := domain.Get(state, domain.KeyDrafts)
	if !ok {
		return state, ErrDraftsMissing
	}

	subject, ok := domain.Get(state, domain.KeySubject)
	if !ok || subject == "" {
		subject = u.config.Subject
	}

	scored := make([]domain.ScoredDraft, len(drafts))

	var g errgroup.Group
	g.SetLimit(u.config.MaxConcurrency)
	for i, d := range drafts {
		g.Go(func() error {
			scored[i] = domain.ScoredDraft{
				AgentIndex: d.AgentIndex,
				Text:       d.Text,
				Score:      u.scorer.Score(ctx, subject, d.Text),
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return state, err
	}

	for _, s := range scored {
		u.observe(s.Score)
	}

	return domain.With(state, domain.KeyScoredDrafts, scored), nil
}

func (u *ScoreUnit) observe(s domain.Score) {
	if u.metrics == nil {
		return
	}
	u.metrics.RecordHistogram(MetricDraftScore, float64(s.FinalScore), map[string]string{"component": "final"})
	u.metrics.RecordHistogram(MetricDraftScore, float64(s.RuleScore), map[string]string{"component": "rule"})
	u.metrics.RecordHistogram(MetricDraftScore, float64(s.LLMScore), map[string]string{"component": "llm"})
}

// Validate checks the unit configuration.
func (u *ScoreUnit) Validate() error {
	if u.scorer == nil {
		return fmt.Errorf("scorer is not configured")
	}
	return validate.Struct(u.config)
}

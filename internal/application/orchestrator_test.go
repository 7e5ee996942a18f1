package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/history"
	"github.com/ahrav/go-pitch/internal/testutils"
)

const prospect = "Jordan, CEO of a 40-person digital marketing agency in Austin"

type fixture struct {
	cfg      *Config
	writers  []*testutils.MockLLMClient
	judge    *testutils.MockLLMClient
	provider *testutils.MockClientProvider
	history  *history.Store
	metrics  *runMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Personas = []domain.Persona{
		{Name: "Professional", Instructions: "be professional", Model: "mock/pro"},
		{Name: "Engaging", Instructions: "be engaging", Model: "mock/fun"},
		{Name: "Concise", Instructions: "be concise", Model: "mock/short"},
	}
	cfg.Judge.Model = "mock/judge"

	f := &fixture{
		cfg:      cfg,
		judge:    testutils.NewMockLLMClient("judge"),
		provider: testutils.NewMockClientProvider(),
		metrics:  &runMetrics{counters: map[string]float64{}},
	}
	for _, p := range cfg.Personas {
		c := testutils.NewMockLLMClient(p.Model)
		f.writers = append(f.writers, c)
		f.provider.Register(p.Model, c)
	}
	f.provider.Register(cfg.Judge.Model, f.judge)

	store, err := history.New(10)
	require.NoError(t, err)
	f.history = store
	return f
}

func (f *fixture) build(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(f.cfg, Dependencies{
		Clients: f.provider,
		History: f.history,
		Metrics: f.metrics,
	})
	require.NoError(t, err)
	return o
}

type runMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (m *runMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (m *runMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric+"/"+labels["status"]] += value
}
func (m *runMetrics) RecordGauge(string, float64, map[string]string)     {}
func (m *runMetrics) RecordHistogram(string, float64, map[string]string) {}

func (m *runMetrics) count(key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("all personas succeed", func(t *testing.T) {
		f := newFixture(t)
		o := f.build(t)

		result, err := o.Run(context.Background(), prospect)
		require.NoError(t, err)

		assert.NotEmpty(t, result.RunID)
		assert.Equal(t, 1, result.ChosenAgent, "identical drafts resolve to the first persona")
		assert.Equal(t, 84, result.Score)
		require.Len(t, result.ScoredDetails, 3)
		for i, sd := range result.ScoredDetails {
			assert.Equal(t, i+1, sd.AgentIndex)
			assert.Equal(t, domain.Score{FinalScore: 84, RuleScore: 89, LLMScore: 82}, sd.Score)
		}
		assert.Equal(t, 3, result.Costs.Calls)
		assert.InDelta(t, 0.006, result.Costs.EstimatedCost, 1e-9)
		assert.False(t, result.CreatedAt.IsZero())

		for _, w := range f.writers {
			assert.Equal(t, 1, w.Calls())
			assert.Equal(t, []string{prospect}, w.Prompts())
		}
		assert.Equal(t, 3, f.judge.Calls(), "every draft is judged")

		stored, ok := o.Lookup(result.RunID)
		require.True(t, ok)
		assert.Same(t, result, stored)
		assert.Equal(t, 1.0, f.metrics.count("pitch_runs_total/success"))
	})

	t.Run("best draft wins", func(t *testing.T) {
		f := newFixture(t)
		f.writers[0].Respond("Hi.")
		f.writers[2].Respond("Hello there.")
		o := f.build(t)

		result, err := o.Run(context.Background(), prospect)
		require.NoError(t, err)
		assert.Equal(t, 2, result.ChosenAgent)
		assert.Equal(t, 84, result.Score)
		assert.Less(t, result.ScoredDetails[0].Score.FinalScore, 84)
	})

	t.Run("failed generation is scored as empty", func(t *testing.T) {
		f := newFixture(t)
		f.writers[1].Fail(nil)
		o := f.build(t)

		result, err := o.Run(context.Background(), prospect)
		require.NoError(t, err)

		failed := result.ScoredDetails[1]
		assert.Empty(t, failed.Text)
		assert.Equal(t, 13, failed.Score.RuleScore)
		assert.Equal(t, 2, result.Costs.Calls)
		assert.InDelta(t, 0.004, result.Costs.EstimatedCost, 1e-9)
		assert.Equal(t, 1, result.ChosenAgent)
	})

	t.Run("all generations fail", func(t *testing.T) {
		f := newFixture(t)
		for _, w := range f.writers {
			w.Fail(nil)
		}
		o := f.build(t)

		result, err := o.Run(context.Background(), prospect)
		require.NoError(t, err)

		assert.Equal(t, 1, result.ChosenAgent)
		assert.Equal(t, 0, result.Costs.Calls)
		assert.Equal(t, 0.0, result.Costs.EstimatedCost)
		for _, sd := range result.ScoredDetails {
			assert.Empty(t, sd.Text)
			assert.Equal(t, domain.Score{FinalScore: 54, RuleScore: 13, LLMScore: 82}, sd.Score)
		}
	})

	t.Run("judge failure falls back to neutral score", func(t *testing.T) {
		f := newFixture(t)
		f.judge.Fail(nil)
		o := f.build(t)

		result, err := o.Run(context.Background(), prospect)
		require.NoError(t, err)
		for _, sd := range result.ScoredDetails {
			assert.Equal(t, 50, sd.Score.LLMScore)
			assert.Equal(t, 65, sd.Score.FinalScore)
		}
		assert.Equal(t, 3, result.Costs.Calls, "judge calls are not charged to the ledger")
	})

	t.Run("judge failure leaves rule score to decide", func(t *testing.T) {
		f := newFixture(t)
		f.writers[0].Respond("Hi.")
		f.writers[1].Respond("Hello there.")
		f.judge.Fail(nil)
		o := f.build(t)

		result, err := o.Run(context.Background(), prospect)
		require.NoError(t, err)

		assert.Equal(t, 3, result.ChosenAgent)
		assert.Equal(t, 65, result.Score)
		want := []domain.Score{
			{FinalScore: 35, RuleScore: 13, LLMScore: 50},
			{FinalScore: 35, RuleScore: 13, LLMScore: 50},
			{FinalScore: 65, RuleScore: 89, LLMScore: 50},
		}
		for i, sd := range result.ScoredDetails {
			assert.Equal(t, want[i], sd.Score)
		}
	})

	t.Run("malformed judge output falls back", func(t *testing.T) {
		f := newFixture(t)
		f.judge.Respond("I think this email is pretty good.")
		o := f.build(t)

		result, err := o.Run(context.Background(), prospect)
		require.NoError(t, err)
		assert.Equal(t, 50, result.ScoredDetails[0].Score.LLMScore)
	})

	t.Run("prospect is trimmed", func(t *testing.T) {
		f := newFixture(t)
		o := f.build(t)

		_, err := o.Run(context.Background(), "  \n"+prospect+"\t ")
		require.NoError(t, err)
		assert.Equal(t, []string{prospect}, f.writers[0].Prompts())
	})
}

func TestOrchestrator_RunInvalidProspect(t *testing.T) {
	tests := []struct {
		name     string
		prospect string
		want     string
	}{
		{name: "empty", prospect: "", want: "cannot be empty"},
		{name: "whitespace", prospect: " \n\t ", want: "cannot be empty"},
		{name: "too long", prospect: strings.Repeat("a", MaxProspectLength+1), want: "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			o := f.build(t)

			result, err := o.Run(context.Background(), tt.prospect)
			assert.Nil(t, result)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "prospect", verr.Entity)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, IsUserError(err))

			for _, w := range f.writers {
				assert.Zero(t, w.Calls(), "no model is called for invalid input")
			}
			assert.Equal(t, 1.0, f.metrics.count("pitch_runs_total/invalid"))
		})
	}
}

func TestOrchestrator_RunCancelled(t *testing.T) {
	f := newFixture(t)
	o := f.build(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx, prospect)
	assert.Nil(t, result)

	var perr *domain.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageDraft, perr.Stage)
	assert.NotEmpty(t, perr.RunID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsUserError(err))
	assert.Zero(t, f.history.Len(), "aborted runs leave no report")
	assert.Equal(t, 1.0, f.metrics.count("pitch_runs_total/error"))
}

func TestOrchestrator_RunIDs(t *testing.T) {
	f := newFixture(t)
	o := f.build(t)
	o.newID = func() string { return "fixed-id" }

	result, err := o.Run(context.Background(), prospect)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", result.RunID)

	_, ok := o.Lookup("fixed-id")
	assert.True(t, ok)
	_, ok = o.Lookup("other")
	assert.False(t, ok)

	assert.Equal(t, []string{"fixed-id"}, o.Recent(5))
	assert.Nil(t, o.Recent(0))
	assert.Nil(t, NewOrchestratorWithPipeline(NewPipeline("p"), "", Dependencies{}).Recent(5))
}

func TestNewOrchestrator_Errors(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewOrchestrator(nil, Dependencies{})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("missing client provider", func(t *testing.T) {
		_, err := NewOrchestrator(DefaultConfig(), Dependencies{})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("unknown judge model", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Judge.Model = "mock/unknown"
		_, err := NewOrchestrator(f.cfg, Dependencies{Clients: f.provider})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mock/unknown")
	})

	t.Run("invalid config", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Scoring.RuleWeight = 90
		_, err := NewOrchestrator(f.cfg, Dependencies{Clients: f.provider})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})
}

func TestOrchestrator_Validate(t *testing.T) {
	f := newFixture(t)
	o := f.build(t)
	require.NoError(t, o.Validate())

	f.cfg.Personas[2].Model = "mock/missing"
	o = f.build(t)
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock/missing")
}

func TestNewOrchestratorWithPipeline_MissingResult(t *testing.T) {
	p := NewPipeline("empty")
	require.NoError(t, p.Add(stepUnit{name: "noop"}))
	o := NewOrchestratorWithPipeline(p, "", Dependencies{})

	_, err := o.Run(context.Background(), prospect)
	var perr *domain.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.True(t, errors.Is(err, domain.ErrMissingState))
}

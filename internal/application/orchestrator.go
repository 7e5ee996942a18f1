package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-pitch/infrastructure/middleware"
	"github.com/ahrav/go-pitch/infrastructure/units"
	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

// MaxProspectLength bounds the prospect description in characters.
const MaxProspectLength = 4000

// Stage names of the default pipeline.
const (
	StageDraft  = "draft"
	StageScore  = "score"
	StageSelect = "select"
)

// Dependencies are the collaborators the orchestrator is built from. Only
// Clients is required.
type Dependencies struct {
	Clients ports.ClientProvider
	History ports.RunStore
	Metrics ports.MetricsCollector
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// Orchestrator runs the draft, score and select stages for a prospect and
// returns the report. Draft and judge failures degrade inside the stages;
// only unexpected failures reach the caller, as one *domain.PipelineError.
type Orchestrator struct {
	pipeline *Pipeline
	subject  string
	history  ports.RunStore
	metrics  ports.MetricsCollector
	logger   *slog.Logger
	newID    func() string
}

// NewOrchestrator builds the default three-stage pipeline from cfg.
func NewOrchestrator(cfg *Config, deps Dependencies) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", domain.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Clients == nil {
		return nil, fmt.Errorf("%w: client provider is required", domain.ErrInvalidConfiguration)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	drafter, err := units.NewDrafter(deps.Clients, cfg.Generation, logger, deps.Metrics)
	if err != nil {
		return nil, err
	}
	draftUnit, err := units.NewDraftUnit(StageDraft, drafter, cfg.DraftUnitConfig())
	if err != nil {
		return nil, err
	}

	judgeClient, err := deps.Clients.GetClient(cfg.Judge.Model)
	if err != nil {
		return nil, fmt.Errorf("judge model %q: %w", cfg.Judge.Model, err)
	}
	judge, err := units.NewJudge(judgeClient, cfg.Judge.JudgeConfig, logger, deps.Metrics)
	if err != nil {
		return nil, err
	}
	scorer, err := units.NewHybridScorer(units.ScoreRules, judge, cfg.Scoring.ScoringConfig)
	if err != nil {
		return nil, err
	}
	scoreUnit, err := units.NewScoreUnit(StageScore, scorer, cfg.ScoreUnitConfig(), deps.Metrics)
	if err != nil {
		return nil, err
	}

	selectUnit, err := units.NewSelectUnit(StageSelect, domain.StableMax{})
	if err != nil {
		return nil, err
	}

	pipeline := NewPipeline("outreach")
	for _, u := range []ports.Unit{draftUnit, scoreUnit, selectUnit} {
		if err := pipeline.Add(middleware.NewObservedUnit(u, deps.Tracer, deps.Metrics)); err != nil {
			return nil, err
		}
	}

	return NewOrchestratorWithPipeline(pipeline, cfg.Scoring.Subject, deps), nil
}

// NewOrchestratorWithPipeline wraps an already assembled pipeline. The
// pipeline must leave a RunResult in state.
func NewOrchestratorWithPipeline(p *Pipeline, subject string, deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		pipeline: p,
		subject:  subject,
		history:  deps.History,
		metrics:  deps.Metrics,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Validate checks that every stage is ready, including that each persona's
// model resolves to a client.
func (o *Orchestrator) Validate() error { return o.pipeline.Validate() }

// Run produces the report for one prospect description.
func (o *Orchestrator) Run(ctx context.Context, prospect string) (*domain.RunResult, error) {
	prospect = strings.TrimSpace(prospect)
	if err := validateProspect(prospect); err != nil {
		o.countRun("invalid")
		return nil, err
	}

	runID := o.newID()
	logger := o.logger.With("run_id", runID)
	logger.InfoContext(ctx, "run started", "prospect_chars", utf8.RuneCountInString(prospect))

	state := domain.NewState()
	state = domain.With(state, domain.KeyRunID, runID)
	state = domain.With(state, domain.KeyProspect, prospect)
	if o.subject != "" {
		state = domain.With(state, domain.KeySubject, o.subject)
	}

	start := time.Now()
	out, err := o.pipeline.Execute(ctx, state)
	elapsed := time.Since(start)
	if err != nil {
		o.finish("error", elapsed)
		logger.ErrorContext(ctx, "run failed", "error", err, "duration", elapsed)
		return nil, err
	}

	result, ok := domain.Get(out, domain.KeyRunResult)
	if !ok || result == nil {
		o.finish("error", elapsed)
		err := domain.NewPipelineError(runID, "", fmt.Errorf("%w: %s", domain.ErrMissingState, domain.KeyRunResult.Name()))
		logger.ErrorContext(ctx, "run failed", "error", err)
		return nil, err
	}

	if o.history != nil {
		o.history.Put(result)
		if o.metrics != nil {
			o.metrics.RecordGauge(middleware.MetricHistorySize, float64(o.history.Len()), nil)
		}
	}
	o.finish("success", elapsed)

	logger.InfoContext(ctx, "run completed",
		"chosen_agent", result.ChosenAgent,
		"score", result.Score,
		"calls", result.Costs.Calls,
		"estimated_cost", result.Costs.EstimatedCost,
		"duration", elapsed,
	)
	return result, nil
}

// Lookup returns a previous report from history.
func (o *Orchestrator) Lookup(runID string) (*domain.RunResult, bool) {
	if o.history == nil {
		return nil, false
	}
	return o.history.Get(runID)
}

// Recent lists up to n run IDs still held in history, newest first.
func (o *Orchestrator) Recent(n int) []string {
	if o.history == nil || n <= 0 {
		return nil
	}
	return o.history.Recent(n)
}

func (o *Orchestrator) finish(status string, elapsed time.Duration) {
	o.countRun(status)
	if o.metrics != nil {
		o.metrics.RecordLatency(middleware.OperationRun, elapsed, map[string]string{"unit": "orchestrator", "status": status})
	}
}

func (o *Orchestrator) countRun(status string) {
	if o.metrics != nil {
		o.metrics.RecordCounter(middleware.MetricRunsTotal, 1, map[string]string{"status": status})
	}
}

func validateProspect(prospect string) error {
	verr := domain.NewValidationError("prospect")
	switch {
	case prospect == "":
		verr.AddError("description cannot be empty")
	case utf8.RuneCountInString(prospect) > MaxProspectLength:
		verr.AddError(fmt.Sprintf("description exceeds %d characters", MaxProspectLength))
	case !utf8.ValidString(prospect):
		verr.AddError("description must be valid UTF-8")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// IsUserError reports whether err was caused by bad input rather than by the
// pipeline.
func IsUserError(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr)
}

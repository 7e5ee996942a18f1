package units

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

var _ ports.Unit = (*DraftUnit)(nil)

// Metric names emitted by the drafter.
const (
	MetricGenerationCalls = "pitch_generation_calls_total"
	MetricGenerationCost  = "pitch_generation_cost_total"
)

// DrafterConfig controls a single persona generation call.
type DrafterConfig struct {
	// Timeout bounds each call. A timed out call is a failed generation.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=0,max=600s"`

	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens" validate:"min=0,max=16000"`
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=2"`

	// CostPerCall is recorded in the ledger for every successful draft.
	CostPerCall float64 `yaml:"cost_per_call" json:"cost_per_call" validate:"min=0"`
}

// DefaultDrafterConfig returns the 60s timeout and 0.002 per call estimate.
func DefaultDrafterConfig() DrafterConfig {
	return DrafterConfig{
		Timeout:     DefaultGenerationTimeout,
		MaxTokens:   DefaultDraftMaxTokens,
		Temperature: DefaultDraftTemperature,
		CostPerCall: domain.DefaultCostPerCall,
	}
}

// Drafter asks a persona's model for one email draft.
type Drafter struct {
	clients ports.ClientProvider
	config  DrafterConfig
	logger  *slog.Logger
	metrics ports.MetricsCollector
}

// NewDrafter creates a drafter that resolves persona models through clients.
// logger and metrics may be nil.
func NewDrafter(clients ports.ClientProvider, config DrafterConfig, logger *slog.Logger, metrics ports.MetricsCollector) (*Drafter, error) {
	if clients == nil {
		return nil, ErrClientProviderNil
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Drafter{clients: clients, config: config, logger: logger, metrics: metrics}, nil
}

// Generate produces the draft for one persona. It never returns an error:
// failures, including timeouts, come back as a result with Err set and
// nothing recorded in the ledger.
func (d *Drafter) Generate(
	ctx context.Context,
	ledger *domain.Ledger,
	index int,
	persona domain.Persona,
	prompt string,
) domain.GenerationResult {
	res := domain.GenerationResult{AgentIndex: index, Persona: persona.Name}

	text, err := d.complete(ctx, persona, prompt)
	if err != nil {
		res.Err = err
		d.record(persona, "failed")
		attrs := append([]any{"agent_index", index, "persona", persona.Name, "model", persona.Model}, llmErrorAttrs(err)...)
		d.logger.WarnContext(ctx, "draft generation failed", attrs...)
		return res
	}

	if ledger != nil {
		ledger.Record(d.config.CostPerCall)
	}
	d.record(persona, "success")
	if d.metrics != nil {
		d.metrics.RecordCounter(MetricGenerationCost, d.config.CostPerCall, map[string]string{"persona": persona.Name})
	}

	res.Text = text
	return res
}

func (d *Drafter) complete(ctx context.Context, persona domain.Persona, prompt string) (string, error) {
	client, err := d.clients.GetClient(persona.Model)
	if err != nil {
		return "", llmError(persona.Model, OperationGenerate, fmt.Errorf("resolve model: %w", err))
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	opts := map[string]any{
		"system":      persona.Instructions,
		"temperature": d.config.Temperature,
	}
	if d.config.MaxTokens > 0 {
		opts["max_tokens"] = d.config.MaxTokens
	}

	text, err := client.Complete(ctx, prompt, opts)
	if err != nil {
		return "", llmError(persona.Model, OperationGenerate, err)
	}
	return strings.TrimSpace(text), nil
}

func (d *Drafter) record(persona domain.Persona, status string) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordCounter(MetricGenerationCalls, 1, map[string]string{
		"persona": persona.Name,
		"status":  status,
	})
}

// DraftUnitConfig configures the generation stage.
type DraftUnitConfig struct {
	Personas []domain.Persona `yaml:"personas" json:"personas" validate:"required,min=1,max=10,dive"`

	// Prompt is a text/template rendered with .Prospect and .Persona.
	Prompt string `yaml:"prompt" json:"prompt"`

	// MaxConcurrency limits parallel generations. Zero runs all at once.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=0,max=20"`
}

// DraftUnit fans out one generation per persona and waits for all of them.
// Drafts are stored in persona order regardless of completion order, and the
// run's cost snapshot is stored alongside them.
type DraftUnit struct {
	name    string
	drafter *Drafter
	config  DraftUnitConfig
	prompt  *template.Template
}

// NewDraftUnit creates the generation stage.
func NewDraftUnit(name string, drafter *Drafter, config DraftUnitConfig) (*DraftUnit, error) {
	if name == "" {
		return nil, ErrUnitNameEmpty
	}
	if drafter == nil {
		return nil, fmt.Errorf("%w: drafter is required", ErrConfigValidation)
	}
	if len(config.Personas) == 0 {
		return nil, ErrNoPersonas
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	tmpl, err := parsePrompt(config.Prompt)
	if err != nil {
		return nil, err
	}
	return &DraftUnit{name: name, drafter: drafter, config: config, prompt: tmpl}, nil
}

// Name returns the unit name.
func (u *DraftUnit) Name() string { return u.name }

// Execute runs every persona concurrently. Individual failures become empty
// drafts; only cancellation of ctx or a broken prompt template is returned.
func (u *DraftUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	prospect, ok := domain.Get(state, domain.KeyProspect)
	if !ok {
		return state, ErrProspectMissing
	}
	if strings.TrimSpace(prospect) == "" {
		return state, ErrProspectEmpty
	}

	prompts := make([]string, len(u.config.Personas))
	for i, p := range u.config.Personas {
		text, err := renderPrompt(u.prompt, promptData{Prospect: prospect, Persona: p.Name})
		if err != nil {
			return state, err
		}
		prompts[i] = text
	}

	ledger := domain.NewLedger()
	results := make([]domain.GenerationResult, len(u.config.Personas))

	var g errgroup.Group
	if u.config.MaxConcurrency > 0 {
		g.SetLimit(u.config.MaxConcurrency)
	}
	for i, persona := range u.config.Personas {
		g.Go(func() error {
			results[i] = u.drafter.Generate(ctx, ledger, i+1, persona, prompts[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return state, err
	}

	drafts := make([]domain.Draft, len(results))
	for i, r := range results {
		drafts[i] = r.Draft()
	}

	state = domain.With(state, domain.KeyDrafts, drafts)
	return domain.With(state, domain.KeyCosts, ledger.Summary()), nil
}

// Validate resolves every persona's model so configuration mistakes surface
// before a run starts.
func (u *DraftUnit) Validate() error {
	var errs []error
	for i, p := range u.config.Personas {
		if _, err := u.drafter.clients.GetClient(p.Model); err != nil {
			errs = append(errs, fmt.Errorf("persona %d (%s): %w", i+1, p.Name, err))
		}
	}
	return errors.Join(errs...)
}

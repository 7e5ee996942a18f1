// Package units holds the pieces of the outreach pipeline: the rule scorer,
// the AI judge adapter, the hybrid scorer, the persona drafter and the three
// ports.Unit stages (draft, score, select) the orchestrator runs in order.
package units

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-pitch/internal/ports"
)

// Defaults shared by the drafter, judge and scoring stages.
const (
	// DefaultGenerationTimeout bounds a single persona draft call.
	DefaultGenerationTimeout = 60 * time.Second
	// DefaultJudgeTimeout bounds a single judge call.
	DefaultJudgeTimeout = 30 * time.Second
	// DefaultFallbackScore is used as the judge score whenever judging fails.
	DefaultFallbackScore = 50
	// DefaultRuleWeight and DefaultJudgeWeight are integer percentages.
	DefaultRuleWeight  = 40
	DefaultJudgeWeight = 60
	// DefaultScoreConcurrency limits parallel judge calls in the score stage.
	DefaultScoreConcurrency = 3
	// DefaultPlaceholderSubject is scored alongside every draft body.
	DefaultPlaceholderSubject = "Agentic AI to help your team"
	// DefaultDraftMaxTokens caps a persona draft.
	DefaultDraftMaxTokens = 600
	// DefaultDraftTemperature is the sampling temperature for drafts.
	DefaultDraftTemperature = 0.7
)

// Sentinel errors returned by unit constructors and Execute.
var (
	ErrUnitNameEmpty       = errors.New("unit name cannot be empty")
	ErrClientProviderNil   = errors.New("client provider cannot be nil")
	ErrLLMClientNil        = errors.New("LLM client cannot be nil")
	ErrNoPersonas          = errors.New("at least one persona is required")
	ErrProspectMissing     = errors.New("prospect not found in state")
	ErrProspectEmpty       = errors.New("prospect cannot be empty")
	ErrDraftsMissing       = errors.New("drafts not found in state")
	ErrScoredDraftsMissing = errors.New("scored drafts not found in state")
	ErrConfigValidation    = errors.New("configuration validation failed")
	ErrJudgeResponse       = fmt.Errorf("judge: %w", ports.ErrInvalidResponse)
)

// Operations reported on *ports.LLMError.
const (
	OperationGenerate = "generate"
	OperationJudge    = "judge"
)

// llmError attaches the model and operation to a failed model call. An
// expired deadline is classified as ports.ErrTimeout.
func llmError(model, operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ports.ErrTimeout) {
		err = fmt.Errorf("%w: %w", ports.ErrTimeout, err)
	}
	return ports.NewLLMError(model, operation, err)
}

// llmErrorAttrs are the log attributes describing a failed model call.
func llmErrorAttrs(err error) []any {
	var le *ports.LLMError
	if !errors.As(err, &le) {
		return []any{"error", err}
	}
	return []any{"error", err, "timeout", le.IsTimeout(), "retryable", le.IsRetryable()}
}

// Package-level validator instance for configuration and judge output.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidators adds the custom tags used by unit configuration:
//
//	modelformat  provider/model, e.g. "openai/gpt-4o-mini"
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("modelformat", validateModelFormat); err != nil {
		return fmt.Errorf("failed to register modelformat validator: %w", err)
	}
	return nil
}

// validateModelFormat accepts empty strings (pair with required) and
// provider/model specs where neither side is empty.
func validateModelFormat(fl validator.FieldLevel) bool {
	spec := fl.Field().String()
	if spec == "" {
		return true
	}
	provider, model, ok := strings.Cut(spec, "/")
	return ok && provider != "" && strings.TrimSpace(model) != "" && !strings.ContainsAny(provider, " \t")
}

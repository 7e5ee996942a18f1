package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-pitch/infrastructure/units"
)

// RegisterConfigValidators adds the custom tags and struct-level rules used
// by Config to v. It returns an error if any registration fails.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := units.RegisterValidators(v); err != nil {
		return err
	}

	v.RegisterStructValidation(validateScoringWeights, units.ScoringConfig{})
	v.RegisterStructValidation(validateRetryDelays, LLMConfig{})
	v.RegisterStructValidation(validatePersonaNames, Config{})

	return nil
}

// validateScoringWeights requires the rule and judge percentages to add up to
// exactly 100 so the final score stays within [0, 100].
func validateScoringWeights(sl validator.StructLevel) {
	sc := sl.Current().Interface().(units.ScoringConfig)
	if sc.RuleWeight+sc.JudgeWeight != 100 {
		sl.ReportError(sc.JudgeWeight, "JudgeWeight", "judge_weight", "weightsum", fmt.Sprint(sc.RuleWeight))
	}
}

// validateRetryDelays rejects a base delay larger than the cap.
func validateRetryDelays(sl validator.StructLevel) {
	lc := sl.Current().Interface().(LLMConfig)
	if lc.RetryMaxDelay > 0 && lc.RetryBaseDelay > lc.RetryMaxDelay {
		sl.ReportError(lc.RetryBaseDelay, "RetryBaseDelay", "retry_base_delay", "ltefield", "RetryMaxDelay")
	}
}

// validatePersonaNames requires persona names to be unique; they label
// drafts, logs and metrics.
func validatePersonaNames(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	seen := make(map[string]struct{}, len(cfg.Personas))
	for i, p := range cfg.Personas {
		if _, dup := seen[p.Name]; dup {
			sl.ReportError(p.Name, fmt.Sprintf("Personas[%d].Name", i), "name", "unique", "")
			continue
		}
		seen[p.Name] = struct{}{}
	}
}

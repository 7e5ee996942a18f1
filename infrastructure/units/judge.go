package units

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ahrav/go-pitch/infrastructure/llm"
	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

// MetricJudgeCalls counts every attempted judge call, labelled by status.
const MetricJudgeCalls = "pitch_judge_calls_total"

// DefaultJudgeRubric is the weighted rubric sent to the judge as its
// system prompt.
const DefaultJudgeRubric = `You are an expert email evaluator. Score the email from 0-100 using this weighted rubric:
- Clarity (20%)
- Value Proposition (20%)
- Relevance to Prospect (15%)
- Persuasiveness (15%)
- Personalization (10%)
- Precision & Professionalism (10%)
- Structure / Readability (10%)
Return JSON: { "total_score": int, "reasoning": "..." }`

const judgeOutputContract = `Respond with a single JSON object and nothing else:
{"total_score": <integer 0-100>, "reasoning": "<one or two sentences>"}`

// JudgeConfig configures the AI judge adapter.
type JudgeConfig struct {
	// Rubric is the system prompt describing how to grade the email.
	Rubric string `yaml:"rubric" json:"rubric" validate:"required,min=10"`

	// Timeout bounds each judge call. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=0,max=300s"`

	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens" validate:"min=0,max=4000"`
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=2"`
}

// DefaultJudgeConfig returns the rubric and limits used when nothing is
// configured.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		Rubric:    DefaultJudgeRubric,
		Timeout:   DefaultJudgeTimeout,
		MaxTokens: 300,
	}
}

// judgeVerdict is the structured output the judge must return.
type judgeVerdict struct {
	TotalScore *float64 `json:"total_score" validate:"required,min=0,max=100"`
	Reasoning  string   `json:"reasoning" validate:"required"`
}

// Judge grades a subject/body pair with an LLM. It never returns an error:
// every failure is reported through JudgeResult.Err so callers can fall back.
type Judge struct {
	client  ports.LLMClient
	config  JudgeConfig
	logger  *slog.Logger
	metrics ports.MetricsCollector
}

// NewJudge creates a judge adapter. logger and metrics may be nil.
func NewJudge(client ports.LLMClient, config JudgeConfig, logger *slog.Logger, metrics ports.MetricsCollector) (*Judge, error) {
	if client == nil {
		return nil, ErrLLMClientNil
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{client: client, config: config, logger: logger, metrics: metrics}, nil
}

// Judge asks the model for a total score and reasoning.
func (j *Judge) Judge(ctx context.Context, subject, body string) domain.JudgeResult {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	opts := map[string]any{
		"system":          j.config.Rubric + "\n\n" + judgeOutputContract,
		"temperature":     j.config.Temperature,
		"response_format": llm.ResponseFormatJSON,
	}
	if j.config.MaxTokens > 0 {
		opts["max_tokens"] = j.config.MaxTokens
	}

	raw, err := j.client.Complete(ctx, judgePrompt(subject, body), opts)
	if err == nil {
		var res domain.JudgeResult
		res, err = parseVerdict(raw)
		if err == nil {
			j.record("success")
			return res
		}
	}

	err = llmError(j.client.GetModel(), OperationJudge, err)
	j.record("failed")
	j.logger.WarnContext(ctx, "judge call failed, using fallback score",
		append([]any{"model", j.client.GetModel()}, llmErrorAttrs(err)...)...)
	return domain.JudgeResult{Err: err}
}

func (j *Judge) record(status string) {
	if j.metrics == nil {
		return
	}
	j.metrics.RecordCounter(MetricJudgeCalls, 1, map[string]string{
		"model":  j.client.GetModel(),
		"status": status,
	})
}

func judgePrompt(subject, body string) string {
	return "Subject:\n" + subject + "\n\nBody:\n" + body
}

// parseVerdict turns raw judge output into a result. Output wrapped in code
// fences or prose is tolerated, and malformed JSON is repaired once before
// giving up.
func parseVerdict(raw string) (domain.JudgeResult, error) {
	candidate := extractJSON(raw)
	if candidate == "" {
		return domain.JudgeResult{}, fmt.Errorf("%w: no JSON object in %q", ErrJudgeResponse, truncate(raw, 80))
	}

	var v judgeVerdict
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(candidate)
		if rerr != nil {
			return domain.JudgeResult{}, fmt.Errorf("%w: %v", ErrJudgeResponse, err)
		}
		v = judgeVerdict{}
		if err := json.Unmarshal([]byte(repaired), &v); err != nil {
			return domain.JudgeResult{}, fmt.Errorf("%w: %v", ErrJudgeResponse, err)
		}
	}

	if err := validate.Struct(v); err != nil {
		return domain.JudgeResult{}, fmt.Errorf("%w: %v", ErrJudgeResponse, err)
	}

	return domain.JudgeResult{
		TotalScore: int(math.Round(*v.TotalScore)),
		Reasoning:  strings.TrimSpace(v.Reasoning),
	}, nil
}

// extractJSON returns the first JSON object in response. A ```json fence
// wins over a bare fence, which wins over brace matching. An object that is
// never closed is returned from its opening brace so it can be repaired.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if nl := strings.Index(response[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			if candidate := strings.TrimSpace(response[start : start+end]); strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return response[start:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

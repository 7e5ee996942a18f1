package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-pitch/infrastructure/units"
	"github.com/ahrav/go-pitch/internal/domain"
)

// Config is the complete runtime configuration of the outreach pipeline.
// Every section has a working default; a YAML file only needs the fields it
// overrides.
type Config struct {
	// Personas are the drafting styles run concurrently for every prospect.
	Personas []domain.Persona `yaml:"personas" validate:"required,min=1,max=10,dive"`

	// Prompt is a text/template rendered with .Prospect and .Persona.
	Prompt string `yaml:"prompt"`

	Judge      JudgeConfig         `yaml:"judge"`
	Scoring    ScoringConfig       `yaml:"scoring"`
	Generation units.DrafterConfig `yaml:"generation"`
	LLM        LLMConfig           `yaml:"llm"`
	History    HistoryConfig       `yaml:"history"`
	Server     ServerConfig        `yaml:"server"`
	Telemetry  TelemetryConfig     `yaml:"telemetry"`
	Log        LogConfig           `yaml:"log"`
}

// JudgeConfig selects the judge model and its rubric and limits.
type JudgeConfig struct {
	Model             string `yaml:"model" validate:"required,modelformat"`
	units.JudgeConfig `yaml:",inline"`
}

// ScoringConfig holds the hybrid weights and stage settings.
type ScoringConfig struct {
	units.ScoringConfig `yaml:",inline"`

	// Subject is the placeholder subject line every draft is scored with.
	Subject string `yaml:"subject" validate:"required"`

	// Concurrency limits parallel judge calls. 1 scores drafts in order.
	Concurrency int `yaml:"concurrency" validate:"min=1,max=20"`
}

// LLMConfig configures the provider registry and the middleware wrapped
// around every client.
type LLMConfig struct {
	DefaultProvider string        `yaml:"default_provider" validate:"required,oneof=openai anthropic google"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"min=0"`

	MaxRetries     int           `yaml:"max_retries" validate:"min=0,max=10"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" validate:"min=0"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay" validate:"min=0"`

	// RateLimit is requests per second per provider. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`
	RateBurst int     `yaml:"rate_burst" validate:"min=0"`

	// CircuitMaxFailures opens a provider's circuit after that many
	// consecutive failures. Zero disables the breaker.
	CircuitMaxFailures int           `yaml:"circuit_max_failures" validate:"min=0"`
	CircuitCooldown    time.Duration `yaml:"circuit_cooldown" validate:"min=0"`

	// BaseURLs overrides provider endpoints, keyed by provider name.
	BaseURLs map[string]string `yaml:"base_urls,omitempty" validate:"dive,url"`
}

// HistoryConfig bounds the in-memory run history.
type HistoryConfig struct {
	Size int `yaml:"size" validate:"min=1,max=10000"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name" validate:"required"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"min=0,max=1"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

const defaultModel = "openai/gpt-4o-mini"

const (
	professionalInstructions = "You are a Professional SDR at TMP AI Consulting. " +
		"Write a professional, outcome-focused cold outreach email. " +
		"Focus on agentic AI, automation, efficiency, cost savings, and revenue impact. " +
		"Keep paragraphs short. Include one CTA. ~150 words max."

	engagingInstructions = "You are an Engaging SDR at TMP AI Consulting. " +
		"Write a personality-driven, clever outreach email using light humor and pattern-interrupts. " +
		"Focus on capturing attention while maintaining professionalism. ~180 words."

	conciseInstructions = "You are a Concise SDR at TMP AI Consulting. " +
		"Write an ultra-brief outreach email for busy executives. Bullets allowed. ~100 words."
)

// DefaultPersonas returns the Professional, Engaging and Concise writers.
func DefaultPersonas() []domain.Persona {
	return []domain.Persona{
		{Name: "Professional", Instructions: professionalInstructions, Model: defaultModel},
		{Name: "Engaging", Instructions: engagingInstructions, Model: defaultModel},
		{Name: "Concise", Instructions: conciseInstructions, Model: defaultModel},
	}
}

// DefaultConfig returns a configuration that runs without a config file.
func DefaultConfig() *Config {
	return &Config{
		Personas: DefaultPersonas(),
		Prompt:   units.DefaultDraftPrompt,
		Judge: JudgeConfig{
			Model:       defaultModel,
			JudgeConfig: units.DefaultJudgeConfig(),
		},
		Scoring: ScoringConfig{
			ScoringConfig: units.DefaultScoringConfig(),
			Subject:       units.DefaultPlaceholderSubject,
			Concurrency:   units.DefaultScoreConcurrency,
		},
		Generation: units.DefaultDrafterConfig(),
		LLM: LLMConfig{
			DefaultProvider:    "openai",
			RequestTimeout:     0,
			MaxRetries:         2,
			RetryBaseDelay:     500 * time.Millisecond,
			RetryMaxDelay:      5 * time.Second,
			RateLimit:          5,
			RateBurst:          5,
			CircuitMaxFailures: 5,
			CircuitCooldown:    30 * time.Second,
		},
		History: HistoryConfig{Size: 100},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "go-pitch",
			SampleRatio: 1,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// configValidator carries the custom tags and struct-level rules used by
// Config.
var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		panic(err)
	}
	return v
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates the
// result. An empty path returns the validated defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(bytes.NewReader(data))
}

// ParseConfig decodes YAML from r on top of DefaultConfig. Unknown fields
// are rejected.
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DraftUnitConfig returns the generation stage configuration.
func (c *Config) DraftUnitConfig() units.DraftUnitConfig {
	return units.DraftUnitConfig{Personas: c.Personas, Prompt: c.Prompt}
}

// ScoreUnitConfig returns the scoring stage configuration.
func (c *Config) ScoreUnitConfig() units.ScoreUnitConfig {
	return units.ScoreUnitConfig{Subject: c.Scoring.Subject, MaxConcurrency: c.Scoring.Concurrency}
}

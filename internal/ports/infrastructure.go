package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-pitch/internal/domain"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers. Implementations handle provider-specific details like
// authentication, request formatting and response parsing.
type LLMClient interface {
	// Complete sends a completion request and returns the generated text.
	//
	// The options map keeps the interface provider neutral. Recognised keys:
	//   - "system": string system prompt
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "response_format": "json_object" to request JSON output
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GetModel returns the model identifier used by this client.
	GetModel() string
}

// ClientProvider resolves a provider/model spec such as "openai/gpt-4o-mini"
// to a ready client.
type ClientProvider interface {
	GetClient(spec string) (LLMClient, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, for example a
	// draft's final score.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// RunStore keeps recently completed run reports so they can be fetched by
// ID. Implementations are in-memory and bounded; nothing is persisted.
type RunStore interface {
	// Put stores a report under its RunID, evicting older runs as needed.
	Put(result *domain.RunResult)

	// Get returns the report for id, if it is still retained.
	Get(id string) (*domain.RunResult, bool)

	// Len returns the number of retained reports.
	Len() int

	// Recent returns up to n retained run IDs, newest first.
	Recent(n int) []string
}

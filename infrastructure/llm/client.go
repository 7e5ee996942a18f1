// Package llm provides a unified client for the LLM providers used to draft
// and judge outreach emails, with rate limiting, retries, circuit breaking,
// metrics and tracing added through a middleware chain.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	})
//	text, err := client.Complete(ctx, prompt, map[string]any{"system": persona.Instructions})
//
// With middleware:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-haiku-latest",
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("pitch"),
//	        llm.RateLimitMiddleware(5, 10),
//	        llm.CircuitBreakerMiddleware(5, 30*time.Second),
//	    },
//	})
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-pitch/internal/ports"
)

var _ ports.LLMClient = (*Client)(nil)

// CoreLLM is the minimal contract a provider implements. Middleware wraps
// a CoreLLM and returns another one.
type CoreLLM interface {
	// DoRequest sends prompt to the provider and returns the response text
	// with input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Middleware wraps a CoreLLM to add cross-cutting behaviour.
type Middleware func(CoreLLM) CoreLLM

// Chain applies middleware so that the first element is the outermost.
func Chain(core CoreLLM, mws ...Middleware) CoreLLM {
	for i := len(mws) - 1; i >= 0; i-- {
		core = mws[i](core)
	}
	return core
}

// ClientConfig holds the settings used to build a client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the provider model.
	Model string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout bounds the provider's HTTP client. Zero keeps the SDK default.
	Timeout time.Duration

	// Middleware is applied in order, first is outermost.
	Middleware []Middleware
}

// Client implements ports.LLMClient on top of a middleware-wrapped CoreLLM.
type Client struct {
	core CoreLLM
}

// NewClient creates a client for providerType.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, errors.New("model is required")
	}

	factory, ok := lookupProviderFactory(providerType)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return &Client{core: Chain(core, config.Middleware...)}, nil
}

// NewClientFromCore wraps an existing CoreLLM. It is used for tests and for
// providers constructed outside the factory registry.
func NewClientFromCore(core CoreLLM, mws ...Middleware) *Client {
	return &Client{core: Chain(core, mws...)}
}

// Complete sends a prompt and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage is Complete plus the token counts reported by the
// provider.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel returns the model of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[string]ProviderFactory{}
)

// RegisterProviderFactory makes a provider available to NewClient.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[providerType] = factory
}

func lookupProviderFactory(providerType string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[providerType]
	return f, ok
}

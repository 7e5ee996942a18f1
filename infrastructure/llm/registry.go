package llm

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-pitch/internal/ports"
)

var _ ports.ClientProvider = (*Registry)(nil)

// Registry builds and caches one client per "provider/model" spec, so that
// every persona and the judge can each point at a different model.
type Registry struct {
	mu                sync.RWMutex
	providers         map[string]ProviderConfig
	clients           map[string]ports.LLMClient
	defaultProvider   string
	defaultMiddleware []Middleware
	defaultTimeout    time.Duration
	metrics           ports.MetricsCollector
	getenv            func(string) string
}

// ProviderConfig describes one provider known to the registry.
type ProviderConfig struct {
	// Type selects the registered ProviderFactory.
	Type string
	// EnvVar names the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when a spec names only the provider.
	DefaultModel string
	// SupportedModels restricts the models that may be requested. Empty
	// allows any model.
	SupportedModels []string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Middleware is applied inside the registry defaults.
	Middleware []Middleware
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Providers         map[string]ProviderConfig
	DefaultProvider   string
	DefaultTimeout    time.Duration
	DefaultMiddleware []Middleware

	// Metrics, when set, adds MetricsMiddleware labelled with the provider
	// name to every client.
	Metrics ports.MetricsCollector

	// Getenv looks up API keys. Defaults to os.Getenv.
	Getenv func(string) string
}

// DefaultProviders lists the providers compiled into this package.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: GoogleDefaultModel,
	},
}

// NewRegistry creates a registry. Clients are created lazily on first use.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}
	if _, ok := config.Providers[config.DefaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}

	getenv := config.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	return &Registry{
		providers:         config.Providers,
		clients:           make(map[string]ports.LLMClient),
		defaultProvider:   config.DefaultProvider,
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
		metrics:           config.Metrics,
		getenv:            getenv,
	}, nil
}

// GetClient returns the client for spec, which is either "provider" or
// "provider/model". The model part may itself contain slashes.
func (r *Registry) GetClient(spec string) (ports.LLMClient, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty")
	}

	provider, model := r.parseSpec(spec)
	key := provider + "/" + model

	r.mu.RLock()
	client, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}
	r.clients[key] = client
	return client, nil
}

// GetDefaultClient returns the client for the default provider and model.
func (r *Registry) GetDefaultClient() (ports.LLMClient, error) {
	return r.GetClient(r.defaultProvider)
}

// RegisterClient installs a prebuilt client under spec, replacing any
// cached one.
func (r *Registry) RegisterClient(spec string, client ports.LLMClient) error {
	if spec == "" || client == nil {
		return fmt.Errorf("spec and client are required")
	}
	provider, model := r.parseSpec(spec)
	if _, ok := r.providers[provider]; !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[provider+"/"+model] = client
	return nil
}

// Providers returns the configured provider names in sorted order.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) parseSpec(spec string) (provider, model string) {
	provider, model, found := strings.Cut(spec, "/")
	if !found || model == "" {
		if pc, ok := r.providers[provider]; ok {
			model = pc.DefaultModel
		}
	}
	return provider, model
}

func (r *Registry) createClient(provider, model string) (ports.LLMClient, error) {
	pc, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	if len(pc.SupportedModels) > 0 && !slices.Contains(pc.SupportedModels, model) {
		return nil, fmt.Errorf("model %q is not supported by provider %q. Supported models: %v",
			model, provider, pc.SupportedModels)
	}

	apiKey := r.getenv(pc.EnvVar)
	if apiKey == "" {
		return nil, ports.NewConfigError(pc.EnvVar,
			fmt.Errorf("%w: environment variable not set for provider %q", ports.ErrConfigNotFound, provider))
	}

	mws := slices.Clone(r.defaultMiddleware)
	if r.metrics != nil {
		mws = append(mws, MetricsMiddleware(r.metrics, provider))
	}
	mws = append(mws, pc.Middleware...)

	client, err := NewClient(pc.Type, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    pc.BaseURL,
		Timeout:    r.defaultTimeout,
		Middleware: mws,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return client, nil
}

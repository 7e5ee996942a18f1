package application

import (
	"fmt"
	"maps"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-pitch/infrastructure/llm"
	"github.com/ahrav/go-pitch/internal/ports"
)

// NewRegistry builds the provider registry described by cfg. Every client is
// traced and retried; each provider additionally gets its own circuit
// breaker and a rate limiter shared by all of its models.
func NewRegistry(cfg LLMConfig, metrics ports.MetricsCollector, tracer trace.Tracer, getenv func(string) string) (*llm.Registry, error) {
	tracing := llm.TracingMiddleware("go-pitch/llm")
	if tracer != nil {
		tracing = llm.TracingMiddlewareWithTracer(tracer)
	}

	defaults := []llm.Middleware{tracing}
	if cfg.MaxRetries > 0 {
		defaults = append(defaults, llm.RetryMiddleware(cfg.MaxRetries, cfg.RetryBaseDelay, cfg.RetryMaxDelay))
	}

	providers := make(map[string]llm.ProviderConfig, len(llm.DefaultProviders))
	maps.Copy(providers, llm.DefaultProviders)
	for name, pc := range providers {
		if url, ok := cfg.BaseURLs[name]; ok {
			pc.BaseURL = url
		}
		pc.Middleware = providerMiddleware(cfg)
		providers[name] = pc
	}
	for name := range cfg.BaseURLs {
		if _, ok := providers[name]; !ok {
			return nil, fmt.Errorf("base url configured for unknown provider %q", name)
		}
	}

	return llm.NewRegistry(llm.RegistryConfig{
		Providers:         providers,
		DefaultProvider:   cfg.DefaultProvider,
		DefaultTimeout:    cfg.RequestTimeout,
		DefaultMiddleware: defaults,
		Metrics:           metrics,
		Getenv:            getenv,
	})
}

func providerMiddleware(cfg LLMConfig) []llm.Middleware {
	var mws []llm.Middleware
	if cfg.CircuitMaxFailures > 0 {
		mws = append(mws, llm.CircuitBreakerMiddleware(cfg.CircuitMaxFailures, cfg.CircuitCooldown))
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.RateBurst, 1)
		mws = append(mws, llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit), burst))
	}
	return mws
}

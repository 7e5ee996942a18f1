package llm

import (
	"fmt"
	"net/url"
	"time"
)

// Request defaults and bounds shared by all providers.
const (
	DefaultMaxTokens = 1024

	MinTemperature = 0.0
	MaxTemperature = 2.0

	MinTimeout = 1 * time.Second
	MaxTimeout = 10 * time.Minute
)

// ResponseFormatJSON asks a provider for a bare JSON object. Providers
// without a native JSON mode ignore it.
const ResponseFormatJSON = "json_object"

// RequestOptions is the provider-neutral view of the options map passed to
// DoRequest.
type RequestOptions struct {
	MaxTokens int
	Model     string
	System    string

	// Temperature is nil when the provider default should be used.
	Temperature *float64

	// JSON is set when the caller asked for ResponseFormatJSON.
	JSON bool
}

// ParseRequestOptions reads the recognised keys from opts, falling back to
// defaults for anything missing or out of range.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: DefaultMaxTokens,
		Model:     defaultModel,
	}

	if v, ok := opts["max_tokens"].(int); ok && v > 0 {
		options.MaxTokens = v
	}
	if v, ok := opts["model"].(string); ok && v != "" {
		options.Model = v
	}
	if v, ok := opts["system"].(string); ok {
		options.System = v
	}
	if v, ok := toFloat64(opts["temperature"]); ok && v >= MinTemperature && v <= MaxTemperature {
		options.Temperature = &v
	}
	if v, ok := opts["response_format"].(string); ok && v == ResponseFormatJSON {
		options.JSON = true
	}

	return options
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// ValidateBaseURL checks that baseURL is an absolute http(s) URL.
// An empty string is valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, but got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}

	return parsed.String(), nil
}

// ValidateTimeout clamps timeout to [MinTimeout, MaxTimeout]. Zero or
// negative values return zero, meaning "use the default".
func ValidateTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 0:
		return 0
	case timeout < MinTimeout:
		return MinTimeout
	case timeout > MaxTimeout:
		return MaxTimeout
	default:
		return timeout
	}
}

func clampFloat64(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// estimateTokens is the fallback when a provider omits usage data.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

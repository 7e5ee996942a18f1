// Package testutils provides deterministic LLM doubles for pipeline tests.
package testutils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-pitch/internal/ports"
)

// SampleDraft is a realistic outreach email. It passes every rule check,
// which the rule scorer reports as 89.
const SampleDraft = `Hi Jordan,

As the CEO of a growing agency, your team is probably stretched across Client work, Reporting and Sales.

Imagine if agentic AI could automate the busywork and improve efficiency across every campaign. Teams we work with reduce manual reporting time by half and increase billable hours within a quarter.

What if your Marketing Team could spend that time on Strategy instead? We build agentic automation that plugs into the tools you already use, so nothing changes for your Clients except faster results.

Would you be available for a quick chat next week? I can schedule a 20 minute call on Tuesday or Thursday.

Best,
Sam at TMP AI Consulting`

// SampleVerdict is a well formed judge response.
const SampleVerdict = `{"total_score": 82, "reasoning": "Clear value proposition and a single concrete call to action."}`

// ErrMockFailure is returned by rules configured with Fail.
var ErrMockFailure = errors.New("mock llm failure")

// MockResponse scripts the reply to prompts containing Pattern.
type MockResponse struct {
	// Pattern is matched case-insensitively against the system prompt and
	// the user prompt. An empty pattern matches everything.
	Pattern string
	// Response is returned when the rule matches and Err is nil.
	Response string
	// Err is returned instead of a response.
	Err error
	// Delay is waited before replying. Cancellation of ctx ends the wait.
	Delay time.Duration
}

// MockLLMClient is a goroutine-safe ports.LLMClient whose replies are
// scripted by prompt pattern. Rules are evaluated in insertion order; when
// none match, judge-style prompts get SampleVerdict and everything else gets
// SampleDraft.
type MockLLMClient struct {
	model string

	mu       sync.Mutex
	rules    []MockResponse
	calls    int
	prompts  []string
	lastOpts map[string]any
}

var _ ports.LLMClient = (*MockLLMClient)(nil)

// NewMockLLMClient creates a mock reporting model.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{model: model}
}

// AddResponse appends a scripted rule.
func (m *MockLLMClient) AddResponse(r MockResponse) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
	return m
}

// Respond is shorthand for a rule matching everything.
func (m *MockLLMClient) Respond(response string) *MockLLMClient {
	return m.AddResponse(MockResponse{Response: response})
}

// Fail makes every call return err.
func (m *MockLLMClient) Fail(err error) *MockLLMClient {
	if err == nil {
		err = ErrMockFailure
	}
	return m.AddResponse(MockResponse{Err: err})
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	system, _ := options["system"].(string)

	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.lastOpts = options
	rule, matched := m.match(strings.ToLower(system + "\n" + prompt))
	m.mu.Unlock()

	if !matched {
		if isJudgePrompt(prompt) {
			return SampleVerdict, nil
		}
		return SampleDraft, nil
	}

	if rule.Delay > 0 {
		timer := time.NewTimer(rule.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if rule.Err != nil {
		return "", fmt.Errorf("%s: %w", m.model, rule.Err)
	}
	return rule.Response, nil
}

func (m *MockLLMClient) match(text string) (MockResponse, bool) {
	for _, r := range m.rules {
		if r.Pattern == "" || strings.Contains(text, strings.ToLower(r.Pattern)) {
			return r, true
		}
	}
	return MockResponse{}, false
}

// isJudgePrompt recognises the "Subject:\n...\n\nBody:\n..." judge layout.
func isJudgePrompt(prompt string) bool {
	return strings.HasPrefix(prompt, "Subject:") && strings.Contains(prompt, "\n\nBody:\n")
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string { return m.model }

// Calls returns how many times Complete was invoked.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns every prompt received, in call order.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastOptions returns the options of the most recent call.
func (m *MockLLMClient) LastOptions() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}

// MockClientProvider resolves model specs to registered clients.
type MockClientProvider struct {
	mu      sync.RWMutex
	clients map[string]ports.LLMClient
}

var _ ports.ClientProvider = (*MockClientProvider)(nil)

// NewMockClientProvider returns an empty provider.
func NewMockClientProvider() *MockClientProvider {
	return &MockClientProvider{clients: make(map[string]ports.LLMClient)}
}

// Register binds spec to client and returns the provider for chaining.
func (p *MockClientProvider) Register(spec string, client ports.LLMClient) *MockClientProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[spec] = client
	return p
}

// GetClient implements ports.ClientProvider.
func (p *MockClientProvider) GetClient(spec string) (ports.LLMClient, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[spec]
	if !ok {
		return nil, fmt.Errorf("no client registered for %q", spec)
	}
	return c, nil
}

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderRecorder returns a middleware that appends name to log on each call.
func orderRecorder(name string, log *[]string) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &recordingLLM{next: next, name: name, log: log}
	}
}

type recordingLLM struct {
	next CoreLLM
	name string
	log  *[]string
}

func (r *recordingLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*r.log = append(*r.log, r.name)
	return r.next.DoRequest(ctx, prompt, opts)
}

func (r *recordingLLM) GetModel() string { return r.next.GetModel() }

func TestChain_FirstMiddlewareIsOutermost(t *testing.T) {
	var log []string
	core := Chain(NewMockCoreLLM(), orderRecorder("outer", &log), orderRecorder("inner", &log))

	_, _, _, err := core.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, log)
}

func TestNewClient(t *testing.T) {
	RegisterProviderFactory("mock", func(cfg ClientConfig) (CoreLLM, error) {
		m := NewMockCoreLLM()
		m.Model = cfg.Model
		return m, nil
	})
	RegisterProviderFactory("broken", func(ClientConfig) (CoreLLM, error) {
		return nil, errors.New("boom")
	})

	tests := []struct {
		name     string
		provider string
		config   ClientConfig
		wantErr  string
	}{
		{name: "valid", provider: "mock", config: ClientConfig{APIKey: "k", Model: "m1"}},
		{name: "missing key", provider: "mock", config: ClientConfig{Model: "m1"}, wantErr: "API key"},
		{name: "missing model", provider: "mock", config: ClientConfig{APIKey: "k"}, wantErr: "model is required"},
		{name: "unknown provider", provider: "nope", config: ClientConfig{APIKey: "k", Model: "m"}, wantErr: "unknown provider"},
		{name: "factory failure", provider: "broken", config: ClientConfig{APIKey: "k", Model: "m"}, wantErr: "failed to create provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Model, client.GetModel())

			text, err := client.Complete(context.Background(), "hello", nil)
			require.NoError(t, err)
			assert.Equal(t, "test response", text)
		})
	}
}

func TestClient_CompleteWithUsage(t *testing.T) {
	mock := NewMockCoreLLM()
	client := NewClientFromCore(mock)

	text, in, out, err := client.CompleteWithUsage(context.Background(), "hello", map[string]any{"system": "s"})
	require.NoError(t, err)
	assert.Equal(t, "test response", text)
	assert.Equal(t, 10, in)
	assert.Equal(t, 20, out)
	assert.Equal(t, "s", mock.LastOpts["system"])
}

func TestParseRequestOptions(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		want RequestOptions
	}{
		{
			name: "defaults",
			opts: nil,
			want: RequestOptions{MaxTokens: DefaultMaxTokens, Model: "base"},
		},
		{
			name: "all recognised keys",
			opts: map[string]any{
				"max_tokens":      300,
				"model":           "other",
				"system":          "be brief",
				"temperature":     0.7,
				"response_format": ResponseFormatJSON,
			},
			want: RequestOptions{MaxTokens: 300, Model: "other", System: "be brief", Temperature: ptr(0.7), JSON: true},
		},
		{
			name: "invalid values fall back",
			opts: map[string]any{"max_tokens": -1, "model": "", "temperature": 5.0, "response_format": "text"},
			want: RequestOptions{MaxTokens: DefaultMaxTokens, Model: "base"},
		},
		{
			name: "integer temperature",
			opts: map[string]any{"temperature": 1},
			want: RequestOptions{MaxTokens: DefaultMaxTokens, Model: "base", Temperature: ptr(1.0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRequestOptions(tt.opts, "base"))
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "https://api.example.com/v1", want: "https://api.example.com/v1"},
		{in: "ftp://example.com", wantErr: true},
		{in: "example.com", wantErr: true},
		{in: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateBaseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptr[T any](v T) *T { return &v }

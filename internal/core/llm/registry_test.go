package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukovicluka/sheepai/internal/core/embeddings"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/platform/config"
)

type fakeProvider struct {
	name      ProviderName
	priority  int
	available bool
	reply     string
	err       error
	calls     int
}

func (p *fakeProvider) Name() ProviderName { return p.name }
func (p *fakeProvider) IsAvailable() bool  { return p.available }
func (p *fakeProvider) Priority() int      { return p.priority }

func (p *fakeProvider) Complete(context.Context, string, string, int) (string, error) {
	p.calls++
	return p.reply, p.err
}

func testCircuit() embeddings.CircuitBreakerConfig {
	return embeddings.CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Minute}
}

func TestRegistry_PriorityOrder(t *testing.T) {
	low := &fakeProvider{name: "low", priority: 1, available: true, reply: "low"}
	high := &fakeProvider{name: "high", priority: 10, available: true, reply: "high"}

	r := NewRegistry(testCircuit(), nil)
	r.Register(low)
	r.Register(high)

	got, err := r.Complete(context.Background(), "prompt", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "high", got)
	assert.Equal(t, 0, low.calls)
}

func TestRegistry_FallsBackOnFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", priority: 10, available: true, err: errors.New("503")}
	fallback := &fakeProvider{name: "fallback", priority: 1, available: true, reply: "ok"}

	r := NewRegistry(testCircuit(), nil)
	r.Register(primary)
	r.Register(fallback)

	got, err := r.Complete(context.Background(), "prompt", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, primary.calls)
}

func TestRegistry_CircuitSkipsFailingProvider(t *testing.T) {
	primary := &fakeProvider{name: "primary", priority: 10, available: true, err: errors.New("timeout")}
	fallback := &fakeProvider{name: "fallback", priority: 1, available: true, reply: "ok"}

	r := NewRegistry(testCircuit(), nil)
	r.Register(primary)
	r.Register(fallback)

	for i := 0; i < 5; i++ {
		_, err := r.Complete(context.Background(), "prompt", "", 0)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 5, fallback.calls)
}

func TestRegistry_AllFail(t *testing.T) {
	r := NewRegistry(testCircuit(), nil)
	r.Register(&fakeProvider{name: "only", priority: 1, available: true, err: errors.New("boom")})

	_, err := r.Complete(context.Background(), "prompt", "", 0)
	require.ErrorIs(t, err, apperrors.ErrNoProviders)
	assert.Contains(t, err.Error(), "boom")
}

func TestRegistry_UnavailableIgnored(t *testing.T) {
	r := NewRegistry(testCircuit(), nil)
	r.Register(&fakeProvider{name: "off", available: false})

	assert.False(t, r.Available())

	_, err := r.Complete(context.Background(), "prompt", "", 0)
	require.ErrorIs(t, err, apperrors.ErrNoProviders)
}

func TestNew_NoCredentials(t *testing.T) {
	r := New(config.LLMConfig{}, nil)

	assert.False(t, r.Available())
}

func TestNew_BothProviders(t *testing.T) {
	r := New(config.LLMConfig{OpenAIAPIKey: "sk-test", AnthropicAPIKey: "sk-ant"}, nil)

	assert.Equal(t, 2, r.ProviderCount())
}

func TestOpenAIProvider_CompatibleEndpoint(t *testing.T) {
	var gotReq struct {
		Model          string `json:"model"`
		MaxTokens      int    `json:"max_tokens"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summary\":\"s\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, Model: "local-model", RateLimitRPS: 100})
	require.True(t, p.IsAvailable())

	got, err := p.Complete(context.Background(), "Respond with JSON.", "", 256)
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"s"}`, got)
	assert.Equal(t, "local-model", gotReq.Model)
	assert.Equal(t, 256, gotReq.MaxTokens)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, RateLimitRPS: 100})

	_, err := p.Complete(context.Background(), "hello", "", 0)
	require.ErrorIs(t, err, apperrors.ErrEmptyResponse)
}

func TestAnthropicResolveModel(t *testing.T) {
	p := &anthropicProvider{model: defaultAnthropicModel}

	assert.Equal(t, "claude-3-opus-latest", p.resolveModel("claude-3-opus-latest"))
	assert.Equal(t, defaultAnthropicModel, p.resolveModel("gpt-4o-mini"))
	assert.Equal(t, defaultAnthropicModel, p.resolveModel(""))
}

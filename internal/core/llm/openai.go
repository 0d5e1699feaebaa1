package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

const (
	defaultOpenAIModel   = openai.GPT4oMini
	defaultMaxTokens     = 1024
	rateLimiterBurst     = 5
	jsonPromptMarker     = "json"
	defaultRateLimitRPS  = 1.0
	errRateLimiterFormat = "rate limiter: %w"
)

// OpenAIConfig configures an OpenAI or OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // non-empty for self-hosted/local-network servers
	Model        string
	RateLimitRPS float64
}

type openaiProvider struct {
	client      *openai.Client
	model       string
	available   bool
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates a provider for the OpenAI chat completions API.
func NewOpenAIProvider(cfg OpenAIConfig) Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &openaiProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		available:   cfg.APIKey != "" || cfg.BaseURL != "",
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
	}
}

func (p *openaiProvider) Name() ProviderName { return ProviderOpenAI }

func (p *openaiProvider) IsAvailable() bool { return p.available }

func (p *openaiProvider) Priority() int { return PriorityPrimary }

func (p *openaiProvider) Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiterFormat, err)
	}

	if model == "" {
		model = p.model
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	}

	// JSON mode requires the word "json" somewhere in the prompt.
	if strings.Contains(strings.ToLower(prompt), jsonPromptMarker) {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai chat completion: %w", apperrors.ErrEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

var _ Provider = (*openaiProvider)(nil)

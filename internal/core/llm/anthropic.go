package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	modelPrefixClaude     = "claude"
	contentTypeText       = "text"
)

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey       string
	Model        string
	RateLimitRPS float64
}

type anthropicProvider struct {
	client      anthropic.Client
	model       string
	available   bool
	rateLimiter *rate.Limiter
}

// NewAnthropicProvider creates a provider for the Anthropic Messages API.
func NewAnthropicProvider(cfg AnthropicConfig) Provider {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &anthropicProvider{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       model,
		available:   cfg.APIKey != "",
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
	}
}

func (p *anthropicProvider) Name() ProviderName { return ProviderAnthropic }

func (p *anthropicProvider) IsAvailable() bool { return p.available }

func (p *anthropicProvider) Priority() int { return PriorityFallback }

// resolveModel keeps Claude model names and maps anything else (an OpenAI
// model name passed by a caller) to the configured default.
func (p *anthropicProvider) resolveModel(model string) string {
	if strings.HasPrefix(model, modelPrefixClaude) {
		return model
	}

	return p.model
}

func (p *anthropicProvider) Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiterFormat, err)
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.resolveModel(model)),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			sb.WriteString(block.Text)
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("anthropic messages: %w", apperrors.ErrEmptyResponse)
	}

	return sb.String(), nil
}

var _ Provider = (*anthropicProvider)(nil)

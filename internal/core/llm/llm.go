// Package llm is the AI completion collaborator: a prioritized set of
// providers (an OpenAI-compatible endpoint, then Anthropic) behind a single
// Complete call, plus helpers for pulling JSON out of model replies.
package llm

import (
	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/embeddings"
	"github.com/vukovicluka/sheepai/internal/platform/config"
)

// New builds the registry from configuration. With no credentials the
// registry is empty and Available returns false.
func New(cfg config.LLMConfig, logger *zerolog.Logger) *Registry {
	circuitCfg := embeddings.CircuitBreakerConfig{
		Threshold:  cfg.CircuitThreshold,
		ResetAfter: cfg.CircuitTimeout,
	}

	registry := NewRegistry(circuitCfg, logger)

	registry.Register(NewOpenAIProvider(OpenAIConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.Model,
		RateLimitRPS: cfg.RateLimitRPS,
	}))

	registry.Register(NewAnthropicProvider(AnthropicConfig{
		APIKey:       cfg.AnthropicAPIKey,
		Model:        cfg.AnthropicModel,
		RateLimitRPS: cfg.RateLimitRPS,
	}))

	if !registry.Available() {
		registry.logger.Warn().Msg("no LLM provider configured, AI enrichment and credibility rubric disabled")
	}

	return registry
}

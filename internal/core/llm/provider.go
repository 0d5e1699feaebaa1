package llm

import "context"

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary  = 100 // OpenAI-compatible endpoint
	PriorityFallback = 50  // Anthropic
)

// Provider is a single completion backend.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider is configured and available.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Complete sends prompt as a single user message and returns the text reply.
	// An empty model selects the provider default; maxTokens <= 0 selects the
	// provider default.
	Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error)
}

// Client is the completion collaborator consumed by enrichment and credibility.
type Client interface {
	Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error)

	// Available reports whether at least one provider is configured.
	Available() bool
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/embeddings"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
)

const logKeyProvider = "provider"

// Registry manages completion providers with fallback support.
type Registry struct {
	mu              sync.RWMutex
	providers       []Provider // sorted by priority, highest first
	circuitBreakers map[ProviderName]*embeddings.CircuitBreaker
	circuitCfg      embeddings.CircuitBreakerConfig
	logger          *zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(circuitCfg embeddings.CircuitBreakerConfig, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Registry{
		circuitBreakers: make(map[ProviderName]*embeddings.CircuitBreaker),
		circuitCfg:      circuitCfg,
		logger:          logger,
	}
}

// Register adds a provider. Unavailable providers are ignored.
func (r *Registry) Register(p Provider) {
	if !p.IsAvailable() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = append(r.providers, p)
	r.circuitBreakers[p.Name()] = embeddings.NewCircuitBreaker(string(p.Name()), r.circuitCfg, r.logger)

	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].Priority() > r.providers[j].Priority()
	})

	r.logger.Info().
		Str(logKeyProvider, string(p.Name())).
		Int("priority", p.Priority()).
		Msg("registered LLM provider")
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

// Available reports whether any provider is registered.
func (r *Registry) Available() bool {
	return r.ProviderCount() > 0
}

// Complete tries providers in priority order and returns the first success.
// There is no retry of a provider within a call.
func (r *Registry) Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	r.mu.RLock()
	providers := append([]Provider(nil), r.providers...)
	r.mu.RUnlock()

	if len(providers) == 0 {
		return "", apperrors.ErrNoProviders
	}

	var errs []error

	var failedFirst ProviderName

	for i, p := range providers {
		cb := r.circuitBreakers[p.Name()]
		if err := cb.CheckCircuit(); err != nil {
			observability.LLMRequests.WithLabelValues(string(p.Name()), observability.StatusSkipped).Inc()
			errs = append(errs, err)

			continue
		}

		start := time.Now()
		text, err := p.Complete(ctx, prompt, model, maxTokens)
		observability.LLMRequestDuration.WithLabelValues(string(p.Name())).Observe(time.Since(start).Seconds())

		if err != nil {
			cb.RecordFailure()
			observability.LLMRequests.WithLabelValues(string(p.Name()), observability.StatusError).Inc()
			r.logger.Warn().Err(err).Str(logKeyProvider, string(p.Name())).Msg("LLM provider failed")

			if i == 0 {
				failedFirst = p.Name()
			}

			errs = append(errs, err)

			continue
		}

		cb.RecordSuccess()
		observability.LLMRequests.WithLabelValues(string(p.Name()), observability.StatusSuccess).Inc()

		if failedFirst != "" {
			observability.LLMFallbacks.WithLabelValues(string(failedFirst), string(p.Name())).Inc()
		}

		return text, nil
	}

	return "", fmt.Errorf("%w: %w", apperrors.ErrNoProviders, errors.Join(errs...))
}

var _ Client = (*Registry)(nil)

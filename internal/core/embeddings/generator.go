package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/core/textsim"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
)

const (
	logKeyProvider = "provider"
	loadKey        = "model"
	tagsPrefix     = "Tags: "
)

// Loader builds the embedding provider. It runs at most once per Generator.
type Loader func(ctx context.Context) (Provider, error)

// Generator produces embeddings through a lazily loaded provider.
// Concurrent first callers share one in-flight load.
type Generator struct {
	load       Loader
	dimensions int
	breaker    *CircuitBreaker
	logger     *zerolog.Logger

	group    singleflight.Group
	mu       sync.RWMutex
	loaded   bool
	provider Provider
	loadErr  error
}

// NewGenerator creates a generator. A nil loader yields a generator that is
// permanently unavailable.
func NewGenerator(load Loader, dimensions int, logger *zerolog.Logger) *Generator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if load == nil {
		load = func(context.Context) (Provider, error) { return nil, apperrors.ErrNotConfigured }
	}

	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	return &Generator{
		load:       load,
		dimensions: dimensions,
		breaker:    NewCircuitBreaker("embeddings", DefaultCircuitBreakerConfig(), logger),
		logger:     logger,
	}
}

// StaticLoader wraps an already constructed provider.
func StaticLoader(p Provider) Loader {
	return func(context.Context) (Provider, error) {
		if p == nil || !p.IsAvailable() {
			return nil, apperrors.ErrNotConfigured
		}

		return p, nil
	}
}

// Dimensions returns the output vector length.
func (g *Generator) Dimensions() int {
	return g.dimensions
}

// Available loads the provider if needed and reports whether it is usable.
func (g *Generator) Available(ctx context.Context) bool {
	_, err := g.model(ctx)
	return err == nil
}

func (g *Generator) model(ctx context.Context) (Provider, error) {
	g.mu.RLock()
	if g.loaded {
		defer g.mu.RUnlock()
		return g.provider, g.loadErr
	}
	g.mu.RUnlock()

	v, err, _ := g.group.Do(loadKey, func() (any, error) {
		g.mu.RLock()
		if g.loaded {
			defer g.mu.RUnlock()
			return g.provider, g.loadErr
		}
		g.mu.RUnlock()

		// The result is cached for every caller, so it must not depend on
		// the first caller's cancellation.
		p, err := g.load(context.WithoutCancel(ctx))
		if err == nil && p == nil {
			err = apperrors.ErrNotConfigured
		}

		g.mu.Lock()
		g.loaded, g.provider, g.loadErr = true, p, err
		g.mu.Unlock()

		if err != nil {
			g.logger.Warn().Err(err).Msg("embedding model unavailable")
		} else {
			g.logger.Info().
				Str(logKeyProvider, string(p.Name())).
				Int("dimensions", g.dimensions).
				Msg("embedding model loaded")
		}

		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("load embedding model: %w", err)
	}

	p, ok := v.(Provider)
	if !ok || p == nil {
		return nil, apperrors.ErrNotConfigured
	}

	return p, nil
}

// Generate returns the embedding for text, sized to Dimensions.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyText
	}

	p, err := g.model(ctx)
	if err != nil {
		return nil, err
	}

	if err := g.breaker.CheckCircuit(); err != nil {
		observability.EmbeddingRequests.WithLabelValues(string(p.Name()), observability.StatusSkipped).Inc()
		return nil, err
	}

	vec, err := p.Embed(ctx, text)
	if err != nil {
		g.breaker.RecordFailure()
		observability.EmbeddingRequests.WithLabelValues(string(p.Name()), observability.StatusError).Inc()

		return nil, fmt.Errorf("embed with %s: %w", p.Name(), err)
	}

	g.breaker.RecordSuccess()
	observability.EmbeddingRequests.WithLabelValues(string(p.Name()), observability.StatusSuccess).Inc()

	return PadToTargetDimensions(vec, g.dimensions), nil
}

// Embed is Generate for callers that treat a missing embedding as normal:
// it returns nil instead of an error.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	vec, err := g.Generate(ctx, text)
	if err != nil {
		if !errors.Is(err, apperrors.ErrEmptyText) {
			g.logger.Debug().Err(err).Msg("embedding skipped")
		}

		return nil
	}

	return vec
}

// EmbedArticle embeds the article text built by ArticleText.
func (g *Generator) EmbedArticle(ctx context.Context, title, summary string, tags []string) []float32 {
	return g.Embed(ctx, ArticleText(title, summary, tags))
}

// ArticleText joins title, summary and a "Tags: ..." line with blank lines,
// skipping empty parts.
func ArticleText(title, summary string, tags []string) string {
	parts := make([]string, 0, 3)

	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, t)
	}

	if s := strings.TrimSpace(summary); s != "" {
		parts = append(parts, s)
	}

	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}

	if len(cleaned) > 0 {
		parts = append(parts, tagsPrefix+strings.Join(cleaned, ", "))
	}

	return strings.Join(parts, "\n\n")
}

// CosineSimilarity is textsim.CosineSimilarity, exposed next to the generator
// that produces the vectors.
func CosineSimilarity(a, b []float32) float32 {
	return textsim.CosineSimilarity(a, b)
}

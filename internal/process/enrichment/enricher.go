// Package enrichment derives summary, key points, tags, sentiment,
// credibility and embedding for scraped articles.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/core/llm"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
	"github.com/vukovicluka/sheepai/internal/process/credibility"
)

const (
	defaultMaxTokens  = 1024
	promptContentSize = 4000

	logKeyURL     = "url"
	logKeyVariant = "variant"
)

// CredibilityScorer scores one article. It must not fail.
type CredibilityScorer interface {
	Score(ctx context.Context, in credibility.Input) credibility.Result
}

// Embedder embeds article text, returning nil when no embedding is available.
type Embedder interface {
	EmbedArticle(ctx context.Context, title, summary string, tags []string) []float32
}

// Enricher runs the generative step and the two independent sub-scores for
// one article.
type Enricher struct {
	client    llm.Client
	scorer    CredibilityScorer
	embedder  Embedder
	model     string
	maxTokens int
	logger    *zerolog.Logger
}

// Config holds Enricher settings.
type Config struct {
	Model     string
	MaxTokens int
}

// NewEnricher creates an enricher. client, scorer and embedder may be nil.
func NewEnricher(client llm.Client, scorer CredibilityScorer, embedder Embedder, cfg Config, logger *zerolog.Logger) *Enricher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	return &Enricher{
		client:    client,
		scorer:    scorer,
		embedder:  embedder,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// Enrich never fails. When the AI step fails its fields fall back to
// defaults and credibility and embedding are still computed.
func (e *Enricher) Enrich(ctx context.Context, raw domain.RawArticle) (domain.Enrichment, Variant) {
	parsed := e.generate(ctx, raw)
	observability.EnrichmentOutcomes.WithLabelValues(string(parsed.Variant)).Inc()

	if parsed.Variant != VariantStructured {
		e.logger.Warn().Str(logKeyURL, raw.URL).Str(logKeyVariant, string(parsed.Variant)).Msg("enrichment degraded")
	}

	return e.complete(ctx, raw, parsed.Fields), parsed.Variant
}

// Fallback builds the degraded-default enrichment for an article whose
// enrichment failed outright, still attempting credibility and embedding.
func (e *Enricher) Fallback(ctx context.Context, raw domain.RawArticle) domain.Enrichment {
	observability.EnrichmentOutcomes.WithLabelValues(string(VariantDegraded)).Inc()
	return e.complete(ctx, raw, degraded().Fields)
}

func (e *Enricher) generate(ctx context.Context, raw domain.RawArticle) (p Parsed) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str(logKeyURL, raw.URL).Msg("enrichment call panicked")
			p = degraded()
		}
	}()

	if e.client == nil || !e.client.Available() {
		return degraded()
	}

	reply, err := e.client.Complete(ctx, buildPrompt(raw), e.model, e.maxTokens)
	if err != nil {
		e.logger.Warn().Err(err).Str(logKeyURL, raw.URL).Msg("enrichment call failed")
		return degraded()
	}

	return Parse(reply)
}

// complete merges tags and runs the two independent sub-scores, each
// isolated from the other's failures.
func (e *Enricher) complete(ctx context.Context, raw domain.RawArticle, f Fields) domain.Enrichment {
	out := domain.Enrichment{
		Summary:   f.Summary,
		KeyPoints: f.KeyPoints,
		Tags:      domain.MergeTags(raw.Tags, f.Tags),
		Sentiment: f.Sentiment,
	}

	if out.Sentiment == "" {
		out.Sentiment = domain.SentimentNeutral
	}

	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}

	if res, ok := e.scoreCredibility(ctx, raw); ok {
		score := res.Score
		out.CredibilityScore = &score
		out.CredibilityMode = res.Mode
	}

	out.Embedding = e.embed(ctx, raw.Title, out.Summary, out.Tags)

	return out
}

func (e *Enricher) scoreCredibility(ctx context.Context, raw domain.RawArticle) (res credibility.Result, ok bool) {
	if e.scorer == nil {
		return credibility.Result{}, false
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str(logKeyURL, raw.URL).Msg("credibility scorer panicked")
			res, ok = credibility.Result{}, false
		}
	}()

	return e.scorer.Score(ctx, credibility.InputOf(raw)), true
}

func (e *Enricher) embed(ctx context.Context, title, summary string, tags []string) (vec []float32) {
	if e.embedder == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("embedder panicked")
			vec = nil
		}
	}()

	return e.embedder.EmbedArticle(ctx, title, summary, tags)
}

func buildPrompt(raw domain.RawArticle) string {
	content := raw.Content
	if runes := []rune(content); len(runes) > promptContentSize {
		content = string(runes[:promptContentSize])
	}

	published := "unknown"
	if raw.PublishedAt != nil {
		published = raw.PublishedAt.Format(time.DateOnly)
	}

	return fmt.Sprintf(`Analyze the following cybersecurity news article.
Respond with a single JSON object with exactly these fields:
{
  "summary": "<2-3 sentence summary>",
  "keyPoints": ["<3 to 5 short key points>"],
  "tags": "<comma-separated key concepts, e.g. ransomware, healthcare, CVE-2026-1234>",
  "sentiment": "<one of: positive, neutral, negative>"
}

Title: %s
Published: %s

Content:
%s`, raw.Title, published, content)
}

// Package search ranks stored articles against a free-text query, either by
// keyword relevance or by embedding similarity.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/core/textsim"
	db "github.com/vukovicluka/sheepai/internal/storage"
	"github.com/vukovicluka/sheepai/internal/storage/mongostore"
)

const (
	defaultLimit = 10

	// candidateLimit bounds the articles scanned by in-process ranking.
	candidateLimit = 5000
)

// Store is the read side of the article store.
type Store interface {
	FindAll(ctx context.Context, f domain.ArticleFilter) ([]domain.EnrichedArticle, error)
}

// nearestSearcher is implemented by stores that rank by embedding natively.
type nearestSearcher interface {
	NearestByEmbedding(ctx context.Context, embedding []float32, f domain.ArticleFilter, minSimilarity float64, limit int) ([]domain.ScoredArticle, error)
}

var (
	_ Store           = (*db.DB)(nil)
	_ Store           = (*mongostore.Store)(nil)
	_ nearestSearcher = (*db.DB)(nil)
)

// Embedder turns the query into a vector. A nil result means unavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Engine runs keyword and semantic searches.
type Engine struct {
	store    Store
	embedder Embedder
	logger   *zerolog.Logger
}

// New creates an engine. embedder may be nil, which disables Semantic.
func New(store Store, embedder Embedder, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Engine{store: store, embedder: embedder, logger: logger}
}

// Keyword returns up to limit articles with non-zero relevance to query,
// highest first. Ties go to the more recent article.
func (e *Engine) Keyword(ctx context.Context, query string, f domain.ArticleFilter, limit int) ([]domain.ScoredArticle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("keyword search: %w", apperrors.ErrEmptyText)
	}

	articles, err := e.candidates(ctx, f)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.ScoredArticle, 0, len(articles))

	for _, a := range articles {
		score := textsim.Relevance(textsim.DocumentOf(a), query)
		if score == nil || *score == 0 {
			continue
		}

		hits = append(hits, domain.ScoredArticle{Article: a, Score: float64(*score)})
	}

	rank(hits)

	e.logger.Debug().Str("query", query).Int("scanned", len(articles)).Int("hits", len(hits)).Msg("keyword search")

	return truncate(hits, limit), nil
}

// Semantic embeds query and returns up to limit articles whose embedding has
// cosine similarity of at least minSimilarity, most similar first.
func (e *Engine) Semantic(ctx context.Context, query string, f domain.ArticleFilter, limit int, minSimilarity float64) ([]domain.ScoredArticle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("semantic search: %w", apperrors.ErrEmptyText)
	}

	if e.embedder == nil {
		return nil, fmt.Errorf("semantic search: embeddings %w", apperrors.ErrNotConfigured)
	}

	vec := e.embedder.Embed(ctx, query)
	if vec == nil {
		return nil, fmt.Errorf("semantic search: query embedding %w", apperrors.ErrNotConfigured)
	}

	if limit <= 0 {
		limit = defaultLimit
	}

	if ns, ok := e.store.(nearestSearcher); ok {
		hits, err := ns.NearestByEmbedding(ctx, vec, f, minSimilarity, limit)
		if err != nil {
			return nil, fmt.Errorf("semantic search: %w", err)
		}

		return hits, nil
	}

	f.HasEmbedding = true

	articles, err := e.candidates(ctx, f)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.ScoredArticle, 0, len(articles))

	for _, a := range articles {
		sim := float64(textsim.CosineSimilarity(vec, a.Embedding))
		if sim < minSimilarity {
			continue
		}

		hits = append(hits, domain.ScoredArticle{Article: a, Score: sim})
	}

	rank(hits)

	e.logger.Debug().Str("query", query).Int("scanned", len(articles)).Int("hits", len(hits)).Msg("semantic search")

	return truncate(hits, limit), nil
}

func (e *Engine) candidates(ctx context.Context, f domain.ArticleFilter) ([]domain.EnrichedArticle, error) {
	f.Limit = candidateLimit
	f.Offset = 0

	articles, err := e.store.FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	return articles, nil
}

// rank sorts by score, then publication date, then scrape time, all descending.
func rank(hits []domain.ScoredArticle) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}

		return newer(hits[i].Article, hits[j].Article)
	})
}

func newer(a, b domain.EnrichedArticle) bool {
	switch {
	case a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
		return a.PublishedAt.After(*b.PublishedAt)
	case a.PublishedAt != nil && b.PublishedAt == nil:
		return true
	case a.PublishedAt == nil && b.PublishedAt != nil:
		return false
	}

	return a.ScrapedAt.After(b.ScrapedAt)
}

func truncate(hits []domain.ScoredArticle, limit int) []domain.ScoredArticle {
	if limit <= 0 {
		limit = defaultLimit
	}

	if len(hits) > limit {
		return hits[:limit]
	}

	return hits
}

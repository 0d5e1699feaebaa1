package db

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/vukovicluka/sheepai/internal/core/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "url", "title", "author", "published_at", "content",
	"summary", "key_points", "tags", "sentiment",
	"credibility_score", "credibility_mode", "embedding",
	"scraped_at", "processed_at",
}

// applyFilter adds the WHERE clauses for f. Limit and offset are left to the caller.
func applyFilter(b sq.SelectBuilder, f domain.ArticleFilter) sq.SelectBuilder {
	if len(f.URLs) > 0 {
		b = b.Where("url = ANY(?)", f.URLs)
	}

	if c := strings.TrimSpace(f.Category); c != "" {
		pattern := "%" + escapeLike(c) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"content": pattern},
		})
	}

	if f.Sentiment != "" {
		b = b.Where(sq.Eq{"sentiment": string(f.Sentiment)})
	}

	if f.MinCredibility > 0 {
		b = b.Where(sq.GtOrEq{"credibility_score": f.MinCredibility})
	}

	if !f.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"scraped_at": f.Since})
	}

	if f.HasEmbedding {
		b = b.Where(sq.NotEq{"embedding": nil})
	}

	return b
}

// findAllQuery selects articles matching f, newest first.
func findAllQuery(f domain.ArticleFilter) sq.SelectBuilder {
	b := applyFilter(psql.Select(articleColumns...).From(articlesTable), f).
		OrderBy("published_at DESC NULLS LAST", "scraped_at DESC")

	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}

	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}

	return b
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

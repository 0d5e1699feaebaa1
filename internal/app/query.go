package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/search"
)

const (
	tableTitleWidth = 80
	dateFormat      = "2006-01-02"
)

// SearchParams describes one search request.
type SearchParams struct {
	Query         string
	Semantic      bool
	Limit         int
	MinSimilarity float64
	Filter        domain.ArticleFilter
}

// Search runs a keyword or semantic search.
func (a *App) Search(ctx context.Context, p SearchParams) ([]domain.ScoredArticle, error) {
	engine := search.New(a.store, a.embedder, a.componentLogger("search"))

	if p.Semantic {
		return engine.Semantic(ctx, p.Query, p.Filter, p.Limit, p.MinSimilarity)
	}

	return engine.Keyword(ctx, p.Query, p.Filter, p.Limit)
}

// Stats returns corpus statistics.
func (a *App) Stats(ctx context.Context) (domain.Stats, error) {
	return a.store.Stats(ctx)
}

// Subscribe validates and stores a subscriber.
func (a *App) Subscribe(ctx context.Context, s domain.Subscriber) error {
	s.Email = domain.NormalizeEmail(s.Email)

	if err := s.Validate(); err != nil {
		return err
	}

	if err := a.store.UpsertSubscriber(ctx, s); err != nil {
		return err
	}

	a.logger.Info().Str("email", s.Email).Str("interest", s.InterestString()).Msg("subscriber saved")

	return nil
}

// WriteHits renders search results as a table.
func WriteHits(w io.Writer, hits []domain.ScoredArticle, semantic bool) error {
	scoreFmt := func(v float64) string { return strconv.Itoa(int(v)) }
	if semantic {
		scoreFmt = func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	}

	rows := make([][]string, 0, len(hits))

	for _, h := range hits {
		rows = append(rows, []string{
			scoreFmt(h.Score),
			truncateForTable(h.Article.Title, tableTitleWidth),
			string(h.Article.Sentiment),
			credibilityString(h.Article.CredibilityScore),
			publishedString(h.Article.PublishedAt),
			h.Article.URL,
		})
	}

	return writeTable(w, []string{"score", "title", "sentiment", "credibility", "published", "url"}, rows)
}

// WriteStats renders corpus statistics as a table.
func WriteStats(w io.Writer, s domain.Stats) error {
	rows := [][]string{
		{"total", strconv.Itoa(s.Total)},
		{"with_embedding", strconv.Itoa(s.WithEmbedding)},
		{"avg_credibility", strconv.FormatFloat(s.AvgCredibility, 'f', 1, 64)},
	}

	sentiments := make([]string, 0, len(s.BySentiment))
	for k := range s.BySentiment {
		sentiments = append(sentiments, string(k))
	}

	sort.Strings(sentiments)

	for _, k := range sentiments {
		rows = append(rows, []string{"sentiment_" + k, strconv.Itoa(s.BySentiment[domain.Sentiment(k)])})
	}

	return writeTable(w, []string{"metric", "value"}, rows)
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return writer.Flush()
}

func truncateForTable(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}

	return string(r[:limit-1]) + "…"
}

func credibilityString(score *int) string {
	if score == nil {
		return "-"
	}

	return strconv.Itoa(*score)
}

func publishedString(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.UTC().Format(dateFormat)
}

// Package source scrapes the news source into raw article records.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/core/textsim"
	"github.com/vukovicluka/sheepai/internal/platform/config"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
)

// MaxPerRun bounds how many articles one Extract call returns.
const MaxPerRun = 20

const (
	kindIndex  = "index"
	kindFeed   = "feed"
	kindDetail = "detail"

	defaultTimeout = 30 * time.Second
	logKeyURL      = "url"
)

// Extractor fetches the index page, follows up to MaxPerRun article links and
// parses each detail page. Requests are spaced by a fixed delay.
type Extractor struct {
	indexURL *url.URL
	feedURL  string
	limit    int
	maxChars int
	fetcher  *fetcher
	logger   *zerolog.Logger
}

// New creates an extractor for cfg.URL.
func New(cfg config.SourceConfig, logger *zerolog.Logger) (*Extractor, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid source url %q", cfg.URL)
	}

	limit := cfg.MaxArticles
	if limit <= 0 || limit > MaxPerRun {
		limit = MaxPerRun
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Extractor{
		indexURL: u,
		feedURL:  cfg.FeedURL,
		limit:    limit,
		maxChars: cfg.ContentMaxChars,
		fetcher:  newFetcher(cfg.RequestDelay, timeout, cfg.UserAgent),
		logger:   logger,
	}, nil
}

// Extract returns the articles currently listed by the source. When category
// is set only articles whose title or content contain it are returned.
// It fails with ErrExtraction when no article links can be discovered.
func (e *Extractor) Extract(ctx context.Context, category string) ([]domain.RawArticle, error) {
	links, err := e.discover(ctx)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.RawArticle, 0, len(links))

	for _, link := range links {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		article, err := e.article(ctx, link)
		if err != nil {
			observability.ArticlesProcessed.WithLabelValues("skipped_parse").Inc()

			if errors.Is(err, apperrors.ErrPartialParse) {
				e.logger.Debug().Err(err).Str(logKeyURL, link).Msg("skipping incomplete article page")
			} else {
				e.logger.Warn().Err(err).Str(logKeyURL, link).Msg("skipping article page")
			}

			continue
		}

		articles = append(articles, article)
	}

	observability.ArticlesProcessed.WithLabelValues("extracted").Add(float64(len(articles)))

	if category == "" {
		return articles, nil
	}

	filtered := FilterByCategory(articles, category)

	e.logger.Info().
		Str("category", category).
		Int("before", len(articles)).
		Int("after", len(filtered)).
		Msg("category filter applied")

	return filtered, nil
}

// discover lists detail-page links from the index, falling back to the feed.
func (e *Extractor) discover(ctx context.Context) ([]string, error) {
	body, err := e.fetcher.fetch(ctx, kindIndex, e.indexURL.String())
	if err != nil {
		if e.feedURL == "" {
			return nil, fmt.Errorf("%w: fetch index %s: %w", apperrors.ErrExtraction, e.indexURL, err)
		}

		e.logger.Warn().Err(err).Msg("index unavailable, trying feed")
	}

	var links []string

	if err == nil {
		links, err = indexLinks(body, e.indexURL, e.limit)
		if err != nil {
			e.logger.Warn().Err(err).Msg("index page unparsable")
		}
	}

	if len(links) == 0 && e.feedURL != "" {
		links = e.feedFallback(ctx)
	}

	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no article links found at %s", apperrors.ErrExtraction, e.indexURL)
	}

	e.logger.Debug().Int("links", len(links)).Msg("article links discovered")

	return links, nil
}

func (e *Extractor) feedFallback(ctx context.Context) []string {
	body, err := e.fetcher.fetch(ctx, kindFeed, e.feedURL)
	if err != nil {
		e.logger.Warn().Err(err).Str(logKeyURL, e.feedURL).Msg("feed unavailable")
		return nil
	}

	links, err := feedLinks(body, e.limit)
	if err != nil {
		e.logger.Warn().Err(err).Str(logKeyURL, e.feedURL).Msg("feed unparsable")
		return nil
	}

	return links
}

func (e *Extractor) article(ctx context.Context, link string) (domain.RawArticle, error) {
	body, err := e.fetcher.fetch(ctx, kindDetail, link)
	if err != nil {
		return domain.RawArticle{}, err
	}

	return parseDetail(body, link, e.maxChars)
}

// FilterByCategory keeps articles whose title or content contain category,
// ignoring case.
func FilterByCategory(articles []domain.RawArticle, category string) []domain.RawArticle {
	out := make([]domain.RawArticle, 0, len(articles))

	for _, a := range articles {
		if textsim.ContainsFold(category, a.Title, a.Content) {
			out = append(out, a)
		}
	}

	return out
}

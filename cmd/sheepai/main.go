package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/app"
	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/platform/config"
)

const (
	modeIngest    = "ingest"
	modeBackfill  = "backfill"
	modeSearch    = "search"
	modeStats     = "stats"
	modeSubscribe = "subscribe"
)

type options struct {
	mode string
	once bool

	limit         int
	query         string
	semantic      bool
	minSimilarity float64
	category      string
	sentiment     string

	email          string
	semanticQuery  string
	minCredibility int
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Store, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store")
	}
	defer store.Close()

	application := app.New(cfg, store, &logger)

	if err := runMode(ctx, application, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Str("mode", opts.mode).Msg("application error")
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.mode, "mode", modeIngest, "Service mode (ingest, backfill, search, stats, subscribe)")
	flag.BoolVar(&opts.once, "once", false, "Run a single ingestion cycle and exit (ingest mode)")
	flag.IntVar(&opts.limit, "limit", 0, "Maximum articles to backfill or results to print")
	flag.StringVar(&opts.query, "query", "", "Search query")
	flag.BoolVar(&opts.semantic, "semantic", false, "Rank search results by embedding similarity")
	flag.Float64Var(&opts.minSimilarity, "min-similarity", 0, "Minimum cosine similarity for semantic search")
	flag.StringVar(&opts.category, "category", "", "Category keyword (search filter or subscriber interest)")
	flag.StringVar(&opts.sentiment, "sentiment", "", "Sentiment filter for search (positive, neutral, negative)")
	flag.StringVar(&opts.email, "email", "", "Subscriber email")
	flag.StringVar(&opts.semanticQuery, "semantic-query", "", "Subscriber free-text interest")
	flag.IntVar(&opts.minCredibility, "min-credibility", -1, "Credibility threshold (search filter or subscriber setting, -1 for default)")

	flag.Parse()

	return opts
}

func newLogger(appEnv, level string) zerolog.Logger {
	var logger zerolog.Logger

	if appEnv == "local" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && lvl != zerolog.NoLevel {
		logger = logger.Level(lvl)
	}

	return logger
}

func runMode(ctx context.Context, application *app.App, opts options) error {
	switch opts.mode {
	case modeIngest:
		return application.RunIngest(ctx, opts.once)
	case modeBackfill:
		report, err := application.RunBackfill(ctx, opts.limit)
		if err != nil {
			return err
		}

		fmt.Printf("scanned %d, updated %d, failed %d\n", report.Scanned, report.Updated, report.Failed)

		return nil
	case modeSearch:
		hits, err := application.Search(ctx, searchParams(opts))
		if err != nil {
			return err
		}

		return app.WriteHits(os.Stdout, hits, opts.semantic)
	case modeStats:
		stats, err := application.Stats(ctx)
		if err != nil {
			return err
		}

		return app.WriteStats(os.Stdout, stats)
	case modeSubscribe:
		return application.Subscribe(ctx, subscriber(opts))
	default:
		return fmt.Errorf("unknown mode %q, usage: %s -mode=[ingest|backfill|search|stats|subscribe]", opts.mode, os.Args[0])
	}
}

func searchParams(opts options) app.SearchParams {
	p := app.SearchParams{
		Query:         opts.query,
		Semantic:      opts.semantic,
		Limit:         opts.limit,
		MinSimilarity: opts.minSimilarity,
		Filter: domain.ArticleFilter{
			Category: opts.category,
		},
	}

	if opts.sentiment != "" {
		p.Filter.Sentiment = domain.ParseSentiment(opts.sentiment)
	}

	if opts.minCredibility > 0 {
		p.Filter.MinCredibility = opts.minCredibility
	}

	return p
}

func subscriber(opts options) domain.Subscriber {
	s := domain.Subscriber{
		Email:         opts.email,
		Category:      opts.category,
		SemanticQuery: opts.semanticQuery,
	}

	if opts.minCredibility >= 0 {
		threshold := opts.minCredibility
		s.MinCredibility = &threshold
	}

	return s
}

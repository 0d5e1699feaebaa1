// Package app wires configuration, storage and the processing components
// together and exposes one method per operational mode:
//
//   - Ingest: scheduled (or one-shot) ingestion cycles plus the health server
//   - Backfill: embed stored articles that have no embedding yet
//   - Search: keyword or semantic search over stored articles
//   - Stats: corpus statistics
//   - Subscribe: create or update a notification subscriber
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/core/embeddings"
	"github.com/vukovicluka/sheepai/internal/core/llm"
	"github.com/vukovicluka/sheepai/internal/ingest/source"
	"github.com/vukovicluka/sheepai/internal/output/mail"
	"github.com/vukovicluka/sheepai/internal/output/notify"
	"github.com/vukovicluka/sheepai/internal/output/opsreport"
	"github.com/vukovicluka/sheepai/internal/platform/config"
	"github.com/vukovicluka/sheepai/internal/process/credibility"
	"github.com/vukovicluka/sheepai/internal/process/enrichment"
	"github.com/vukovicluka/sheepai/internal/process/pipeline"
	"github.com/vukovicluka/sheepai/internal/search"
	db "github.com/vukovicluka/sheepai/internal/storage"
	"github.com/vukovicluka/sheepai/internal/storage/mongostore"
)

const logKeyComponent = "component"

// Store is everything the modes need from an article store.
type Store interface {
	pipeline.Repository
	search.Store
	notify.SubscriberSource
	UpsertSubscriber(ctx context.Context, s domain.Subscriber) error
	Stats(ctx context.Context) (domain.Stats, error)
	Ping(ctx context.Context) error
	Close()
}

var (
	_ Store = (*db.DB)(nil)
	_ Store = (*mongostore.Store)(nil)
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	store  Store
	logger *zerolog.Logger

	embedder *embeddings.Generator
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, store Store, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	a := &App{cfg: cfg, store: store, logger: logger}
	a.embedder = a.newEmbedder()

	return a
}

// OpenStore connects to the configured backend. Postgres migrations run
// before the store is returned.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StoreBackendPostgres:
		database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, db.PoolOptions{
			MaxConns:          cfg.MaxConnections,
			MinConns:          cfg.MinConnections,
			MaxConnIdleTime:   cfg.MaxConnIdleTime,
			MaxConnLifetime:   cfg.MaxConnLifetime,
			HealthCheckPeriod: cfg.HealthCheckPeriod,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		return database, nil
	case config.StoreBackendMongo:
		store, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}

		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func (a *App) componentLogger(name string) *zerolog.Logger {
	logger := a.logger.With().Str(logKeyComponent, name).Logger()
	return &logger
}

// newEmbedder builds the generator. The provider itself is constructed on
// first use.
func (a *App) newEmbedder() *embeddings.Generator {
	cfg := a.cfg.Embedding
	logger := a.componentLogger("embeddings")

	var load embeddings.Loader

	switch cfg.Provider {
	case config.EmbeddingProviderOpenAI:
		load = func(ctx context.Context) (embeddings.Provider, error) {
			return embeddings.StaticLoader(embeddings.NewOpenAIProvider(embeddings.OpenAIConfig{
				APIKey:     cfg.APIKey,
				BaseURL:    cfg.BaseURL,
				Model:      cfg.Model,
				Dimensions: cfg.Dimensions,
				RateLimit:  cfg.RateLimitRPS,
			}))(ctx)
		}
	case config.EmbeddingProviderMock:
		load = embeddings.StaticLoader(embeddings.NewMockProvider(cfg.Dimensions))
	}

	return embeddings.NewGenerator(load, cfg.Dimensions, logger)
}

func (a *App) newOrchestrator() (*pipeline.Orchestrator, error) {
	llmClient := llm.New(a.cfg.LLM, a.componentLogger("llm"))

	reputation, err := credibility.LoadReputation(a.cfg.Credibility.ReputationFile)
	if err != nil {
		return nil, err
	}

	scorer := credibility.NewScorer(reputation, llmClient, a.componentLogger("credibility"),
		credibility.WithRecentDays(a.cfg.Credibility.RecentDays),
		credibility.WithModel(a.cfg.LLM.Model),
	)

	enricher := enrichment.NewEnricher(llmClient, scorer, a.embedder, enrichment.Config{
		Model:     a.cfg.LLM.Model,
		MaxTokens: a.cfg.LLM.MaxTokens,
	}, a.componentLogger("enrichment"))

	extractor, err := source.New(a.cfg.Source, a.componentLogger("source"))
	if err != nil {
		return nil, err
	}

	mailer := mail.NewSMTPMailer(a.cfg.Mail, a.componentLogger("mail"))

	notifier, err := notify.New(a.store, mailer, notify.Config{
		Concurrency:           a.cfg.Notify.Concurrency,
		DefaultMinCredibility: a.cfg.Notify.DefaultMinCredibility,
	}, a.componentLogger("notify"))
	if err != nil {
		return nil, err
	}

	return pipeline.New(
		a.store,
		extractor,
		enrichment.NewBatchDriver(enricher, a.cfg.LLM.EnrichDelay, a.componentLogger("enrichment")),
		notifier,
		pipeline.Config{Category: a.cfg.Ingest.Category},
		a.componentLogger("pipeline"),
		pipeline.WithReporter(opsreport.New(a.cfg.OpsReport, a.componentLogger("opsreport"))),
		pipeline.WithEmbedder(a.embedder),
	), nil
}

// Package pipeline runs ingestion cycles: extract, drop already stored urls,
// enrich, persist idempotently and notify subscribers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/output/notify"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
	"github.com/vukovicluka/sheepai/internal/process/enrichment"
	db "github.com/vukovicluka/sheepai/internal/storage"
	"github.com/vukovicluka/sheepai/internal/storage/mongostore"
)

// Repository is the article store the orchestrator writes to.
type Repository interface {
	FindByURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	InsertIfAbsent(ctx context.Context, a *domain.EnrichedArticle) error
	FindMissingEmbeddings(ctx context.Context, limit int) ([]domain.EnrichedArticle, error)
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
}

// Compile-time assertions that both store backends implement Repository.
var (
	_ Repository = (*db.DB)(nil)
	_ Repository = (*mongostore.Store)(nil)
)

// Extractor produces raw articles from the source.
type Extractor interface {
	Extract(ctx context.Context, category string) ([]domain.RawArticle, error)
}

// Enricher enriches a batch, returning one result per input article.
type Enricher interface {
	Run(ctx context.Context, articles []domain.RawArticle) []enrichment.Result
}

// Notifier fans saved articles out to subscribers.
type Notifier interface {
	Notify(ctx context.Context, articles []domain.EnrichedArticle) (notify.Result, error)
}

// Embedder embeds article text for backfill.
type Embedder interface {
	Available(ctx context.Context) bool
	EmbedArticle(ctx context.Context, title, summary string, tags []string) []float32
}

// Reporter receives a summary of every completed cycle.
type Reporter interface {
	ReportCycle(ctx context.Context, report CycleReport)
}

// CycleReport summarizes one ingestion cycle.
type CycleReport struct {
	ID           string
	Outcome      string
	Extracted    int
	New          int
	Persisted    int
	Skipped      int
	Failed       int
	Notified     int
	NotifyFailed int
	Err          error
	StartedAt    time.Time
	Duration     time.Duration
}

// Config holds orchestrator settings.
type Config struct {
	Category string
}

// Orchestrator runs one ingestion cycle at a time.
type Orchestrator struct {
	repo      Repository
	extractor Extractor
	enricher  Enricher
	notifier  Notifier
	embedder  Embedder
	reporter  Reporter
	cfg       Config
	logger    *zerolog.Logger

	running sync.Mutex
	state   atomic.Int32
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReporter posts each cycle report to r.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithEmbedder enables Backfill.
func WithEmbedder(e Embedder) Option {
	return func(o *Orchestrator) { o.embedder = e }
}

// New creates an orchestrator. notifier may be nil.
func New(repo Repository, extractor Extractor, enricher Enricher, notifier Notifier, cfg Config, logger *zerolog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	o := &Orchestrator{
		repo:      repo,
		extractor: extractor,
		enricher:  enricher,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// State returns the phase of the running cycle, or StateIdle.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	observability.IngestCycleState.Set(float64(s))
}

// RunCycle runs one ingestion cycle. A call made while another cycle is in
// flight returns immediately with ErrCycleInProgress. Failures are recorded
// in the report; nothing is retried within a cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleReport {
	if !o.running.TryLock() {
		observability.IngestCyclesDropped.Inc()
		o.logger.Warn().Str(LogFieldState, o.State().String()).Msg("ingestion cycle already running, trigger dropped")

		return CycleReport{Outcome: OutcomeError, Err: apperrors.ErrCycleInProgress}
	}
	defer o.running.Unlock()

	report := CycleReport{ID: uuid.New().String(), StartedAt: o.now()}
	logger := o.logger.With().Str(LogFieldCycleID, report.ID).Logger()

	logger.Info().Msg("ingestion cycle started")

	func() {
		defer func() {
			if r := recover(); r != nil {
				report.Err = fmt.Errorf("cycle panicked: %v", r)
			}
		}()

		o.cycle(ctx, &logger, &report)
	}()

	o.setState(StateIdle)
	o.finish(ctx, &logger, &report)

	return report
}

func (o *Orchestrator) cycle(ctx context.Context, logger *zerolog.Logger, report *CycleReport) {
	o.setState(StateExtracting)

	raw, err := o.extractor.Extract(ctx, o.cfg.Category)
	if err != nil {
		report.Err = fmt.Errorf("extract: %w", err)
		return
	}

	report.Extracted = len(raw)
	if len(raw) == 0 {
		report.Outcome = OutcomeEmpty
		return
	}

	o.setState(StateDeduplicating)

	existing, err := o.repo.FindByURLs(ctx, domain.URLs(raw))
	if err != nil {
		report.Err = fmt.Errorf("dedup: %w", err)
		return
	}

	unseen := unseenArticles(raw, existing)
	report.New = len(unseen)
	report.Skipped = len(raw) - len(unseen)
	observability.ArticlesProcessed.WithLabelValues(stageNew).Add(float64(len(unseen)))

	logger.Info().Int("extracted", len(raw)).Int("new", len(unseen)).Msg("deduplicated against store")

	if len(unseen) == 0 {
		report.Outcome = OutcomeNoNew
		return
	}

	o.setState(StateEnriching)

	scrapedAt := o.now()
	results := o.enricher.Run(ctx, unseen)

	o.setState(StatePersisting)

	saved := o.persist(ctx, logger, results, scrapedAt, report)

	if len(saved) > 0 && o.notifier != nil {
		o.setState(StateNotifying)

		res, err := o.notifier.Notify(ctx, saved)
		if err != nil {
			logger.Error().Err(err).Msg("notification fan-out failed")
		}

		report.Notified = res.Sent
		report.NotifyFailed = res.Failed
	}

	report.Outcome = OutcomeSuccess
}

// persist inserts each enriched article unless its url appeared meanwhile.
// A uniqueness conflict is a skip, not an error.
func (o *Orchestrator) persist(ctx context.Context, logger *zerolog.Logger, results []enrichment.Result, scrapedAt time.Time, report *CycleReport) []domain.EnrichedArticle {
	saved := make([]domain.EnrichedArticle, 0, len(results))

	for _, r := range results {
		if ctx.Err() != nil {
			report.Err = ctx.Err()
			break
		}

		url := r.Raw.URL

		exists, err := o.repo.ExistsByURL(ctx, url)
		if err != nil {
			report.Failed++
			observability.ArticlesProcessed.WithLabelValues(stagePersistFailed).Inc()
			logger.Warn().Err(err).Str(LogFieldURL, url).Msg("existence re-check failed")

			continue
		}

		if exists {
			report.Skipped++
			observability.ArticlesProcessed.WithLabelValues(stageDuplicate).Inc()
			logger.Debug().Str(LogFieldURL, url).Msg("article stored by a concurrent writer, skipping")

			continue
		}

		article := r.Enrichment.Apply(r.Raw, scrapedAt, o.now())

		if err := o.repo.InsertIfAbsent(ctx, &article); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				report.Skipped++
				observability.ArticlesProcessed.WithLabelValues(stageDuplicate).Inc()
				logger.Debug().Str(LogFieldURL, url).Msg("article already exists, skipping")

				continue
			}

			report.Failed++
			observability.ArticlesProcessed.WithLabelValues(stagePersistFailed).Inc()
			logger.Warn().Err(err).Str(LogFieldURL, url).Msg("failed to persist article")

			continue
		}

		report.Persisted++
		observability.ArticlesProcessed.WithLabelValues(stagePersisted).Inc()

		saved = append(saved, article)
	}

	return saved
}

func (o *Orchestrator) finish(ctx context.Context, logger *zerolog.Logger, report *CycleReport) {
	report.Duration = o.now().Sub(report.StartedAt)

	switch {
	case errors.Is(report.Err, context.Canceled):
		report.Outcome = OutcomeCanceled
	case report.Err != nil:
		report.Outcome = OutcomeError
	}

	observability.IngestCycles.WithLabelValues(report.Outcome).Inc()
	observability.IngestCycleDuration.Observe(report.Duration.Seconds())

	event := logger.Info()
	if report.Err != nil {
		event = logger.Error().Err(report.Err)
	}

	event.
		Str("outcome", report.Outcome).
		Int("extracted", report.Extracted).
		Int("new", report.New).
		Int("persisted", report.Persisted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("notified", report.Notified).
		Int("notify_failed", report.NotifyFailed).
		Dur("duration", report.Duration).
		Msg("ingestion cycle finished")

	if o.reporter != nil {
		o.reporter.ReportCycle(ctx, *report)
	}
}

func unseenArticles(raw []domain.RawArticle, existing map[string]struct{}) []domain.RawArticle {
	out := make([]domain.RawArticle, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, a := range raw {
		if _, ok := existing[a.URL]; ok {
			continue
		}

		if _, dup := seen[a.URL]; dup {
			continue
		}

		seen[a.URL] = struct{}{}
		out = append(out, a)
	}

	return out
}

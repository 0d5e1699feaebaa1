package enrichment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/domain"
)

// Result pairs a raw article with its enrichment.
type Result struct {
	Raw        domain.RawArticle
	Enrichment domain.Enrichment
	Variant    Variant
}

// BatchDriver enriches articles one at a time with a fixed delay between AI
// calls. It always returns one Result per input article, in order.
type BatchDriver struct {
	enricher *Enricher
	delay    time.Duration
	logger   *zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration)
}

// NewBatchDriver creates a batch driver.
func NewBatchDriver(enricher *Enricher, delay time.Duration, logger *zerolog.Logger) *BatchDriver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &BatchDriver{
		enricher: enricher,
		delay:    delay,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Run enriches every article sequentially.
func (d *BatchDriver) Run(ctx context.Context, articles []domain.RawArticle) []Result {
	results := make([]Result, 0, len(articles))

	for i, raw := range articles {
		if i > 0 && d.delay > 0 {
			d.sleep(ctx, d.delay)
		}

		results = append(results, d.one(ctx, raw))

		d.logger.Debug().
			Int("index", i+1).
			Int("total", len(articles)).
			Str(logKeyURL, raw.URL).
			Str(logKeyVariant, string(results[i].Variant)).
			Msg("article enriched")
	}

	return results
}

func (d *BatchDriver) one(ctx context.Context, raw domain.RawArticle) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str(logKeyURL, raw.URL).Msg("enrichment failed, using defaults")
			res = Result{Raw: raw, Enrichment: d.enricher.Fallback(ctx, raw), Variant: VariantDegraded}
		}
	}()

	enrichment, variant := d.enricher.Enrich(ctx, raw)

	return Result{Raw: raw, Enrichment: enrichment, Variant: variant}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

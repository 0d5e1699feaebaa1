package pipeline

import (
	"context"
	"fmt"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
)

// BackfillReport counts the outcome of an embedding backfill.
type BackfillReport struct {
	Scanned int
	Updated int
	Failed  int
}

// Backfill embeds up to limit stored articles that have no embedding. It
// shares the cycle lock so it never overlaps an ingestion cycle.
func (o *Orchestrator) Backfill(ctx context.Context, limit int) (BackfillReport, error) {
	if o.embedder == nil || !o.embedder.Available(ctx) {
		return BackfillReport{}, fmt.Errorf("backfill: embeddings %w", apperrors.ErrNotConfigured)
	}

	if !o.running.TryLock() {
		return BackfillReport{}, apperrors.ErrCycleInProgress
	}
	defer o.running.Unlock()

	if limit <= 0 {
		limit = defaultBackfillLimit
	}

	articles, err := o.repo.FindMissingEmbeddings(ctx, limit)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("backfill: %w", err)
	}

	report := BackfillReport{Scanned: len(articles)}

	for _, a := range articles {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		vec := o.embedder.EmbedArticle(ctx, a.Title, a.Summary, a.Tags)
		if vec == nil {
			report.Failed++
			continue
		}

		if err := o.repo.SetEmbedding(ctx, a.ID, vec); err != nil {
			report.Failed++
			o.logger.Warn().Err(err).Str(LogFieldURL, a.URL).Msg("failed to store backfilled embedding")

			continue
		}

		report.Updated++
		observability.ArticlesProcessed.WithLabelValues(stageBackfilled).Inc()
	}

	o.logger.Info().
		Int("scanned", report.Scanned).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Msg("embedding backfill finished")

	return report, nil
}

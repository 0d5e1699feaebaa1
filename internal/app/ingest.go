package app

import (
	"context"
	"time"

	"github.com/vukovicluka/sheepai/internal/platform/observability"
	"github.com/vukovicluka/sheepai/internal/platform/schedule"
	"github.com/vukovicluka/sheepai/internal/process/pipeline"
)

const schedulerStopTimeout = 5 * time.Minute

// RunIngest runs ingestion cycles on the configured schedule until ctx ends.
// With once set it runs a single cycle and returns its error.
func (a *App) RunIngest(ctx context.Context, once bool) error {
	orchestrator, err := a.newOrchestrator()
	if err != nil {
		return err
	}

	if once {
		return orchestrator.RunCycle(ctx).Err
	}

	sched, err := schedule.New(schedule.Config{
		Expression:   a.cfg.Ingest.Schedule,
		Timezone:     a.cfg.Ingest.Timezone,
		RunOnStartup: a.cfg.Ingest.RunOnStartup,
	}, func(ctx context.Context) {
		orchestrator.RunCycle(ctx)
	}, a.componentLogger("schedule"))
	if err != nil {
		return err
	}

	go a.startHealthServer(ctx)

	sched.Start(ctx)

	<-ctx.Done()

	a.logger.Info().Msg("shutting down, waiting for the running cycle")

	//nolint:contextcheck // ctx is already canceled; the stop deadline needs its own context
	stopCtx, cancel := context.WithTimeout(context.Background(), schedulerStopTimeout)
	defer cancel()

	if err := sched.Stop(stopCtx); err != nil {
		return err
	}

	return ctx.Err()
}

// RunBackfill embeds up to limit stored articles without an embedding.
func (a *App) RunBackfill(ctx context.Context, limit int) (pipeline.BackfillReport, error) {
	orchestrator := pipeline.New(a.store, nil, nil, nil, pipeline.Config{}, a.componentLogger("pipeline"),
		pipeline.WithEmbedder(a.embedder))

	return orchestrator.Backfill(ctx, limit)
}

func (a *App) startHealthServer(ctx context.Context) {
	srv := observability.NewServer(a.store, a.cfg.HealthPort, a.componentLogger("health"))

	if err := srv.Start(ctx); err != nil {
		a.logger.Error().Err(err).Msg("health check server error")
	}
}

// Package schedule triggers ingestion cycles from a cron expression.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

const errFmtInvalidTimezone = "invalid timezone: %w"

var timezoneAliases = map[string]string{
	"Asia/Nicosia": "Europe/Nicosia",
}

// Job is the work run on every tick.
type Job func(ctx context.Context)

// Config describes when the job runs.
type Config struct {
	Expression   string
	Timezone     string
	RunOnStartup bool
}

// Scheduler runs a Job on a cron schedule. Ticks that arrive while the
// previous run is still going are skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	job      cron.Job
	run      Job
	cfg      Config
	logger   *zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	startup sync.WaitGroup
}

// Validate parses a standard five-field cron expression or descriptor.
func Validate(expr string) error {
	if _, err := cron.ParseStandard(strings.TrimSpace(expr)); err != nil {
		return fmt.Errorf("%w %q: %w", apperrors.ErrInvalidSchedule, expr, err)
	}

	return nil
}

// Location resolves a timezone name, defaulting to UTC.
func Location(name string) (*time.Location, error) {
	name = NormalizeTimezone(name)
	if name == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf(errFmtInvalidTimezone, err)
	}

	return loc, nil
}

// NormalizeTimezone maps known aliases to canonical IANA names.
func NormalizeTimezone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if canonical, ok := timezoneAliases[value]; ok {
		return canonical
	}

	return value
}

// New validates cfg and prepares a scheduler. Nothing runs until Start.
func New(cfg Config, run Job, logger *zerolog.Logger) (*Scheduler, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	sched, err := cron.ParseStandard(strings.TrimSpace(cfg.Expression))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", apperrors.ErrInvalidSchedule, cfg.Expression, err)
	}

	loc, err := Location(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := cronLogger{logger: logger}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithLogger(cl)),
		schedule: sched,
		run:      run,
		cfg:      cfg,
		logger:   logger,
		ctx:      context.Background(),
	}

	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.tick))

	return s, nil
}

// Start registers the job and begins ticking. With RunOnStartup the job also
// runs once immediately. ctx is handed to every run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Schedule(s.schedule, s.job)
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.cfg.Expression).
		Str("timezone", s.cron.Location().String()).
		Time("next_run", s.Next()).
		Msg("scheduler started")

	if s.cfg.RunOnStartup {
		s.startup.Add(1)

		go func() {
			defer s.startup.Done()
			s.job.Run()
		}()
	}
}

// Stop halts ticking and waits for any running job, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	done := make(chan struct{})

	go func() {
		<-stopped.Done()
		s.startup.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running job: %w", ctx.Err())
	}
}

// Next returns the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(time.Now().In(s.cron.Location()))
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	s.run(ctx)
}

// cronLogger routes cron's key/value logging into zerolog.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

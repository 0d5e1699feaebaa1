// Package notify fans newly saved articles out to matching subscribers, one
// batched message per subscriber.
package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
)

const (
	defaultConcurrency = 8

	logKeyEmail = "email"
)

// SubscriberSource lists the current subscribers.
type SubscriberSource interface {
	ListSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// Mailer delivers one message. It reports false with a nil error when mail
// delivery is not configured.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) (bool, error)
}

// Config holds fan-out settings.
type Config struct {
	Concurrency           int
	DefaultMinCredibility int
}

// Result counts the outcome of one fan-out.
type Result struct {
	Subscribers int
	Matched     int
	Sent        int
	Failed      int
	Skipped     int
}

// Notifier matches articles to subscribers and dispatches the messages.
type Notifier struct {
	subscribers SubscriberSource
	mailer      Mailer
	renderer    *Renderer
	cfg         Config
	logger      *zerolog.Logger
}

// New creates a notifier.
func New(subscribers SubscriberSource, mailer Mailer, cfg Config, logger *zerolog.Logger) (*Notifier, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	return &Notifier{
		subscribers: subscribers,
		mailer:      mailer,
		renderer:    renderer,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Notify sends each subscriber with at least one match a single message.
// A failed dispatch is counted and never stops the others; only a failure to
// list subscribers is returned as an error.
func (n *Notifier) Notify(ctx context.Context, articles []domain.EnrichedArticle) (Result, error) {
	if len(articles) == 0 {
		return Result{}, nil
	}

	subs, err := n.subscribers.ListSubscribers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list subscribers: %w", err)
	}

	var (
		matched, sent, failed, skipped atomic.Int64
		g                              errgroup.Group
	)

	g.SetLimit(n.cfg.Concurrency)

	for _, sub := range subs {
		sub := sub
		matches := MatchArticles(sub, articles, sub.Threshold(n.cfg.DefaultMinCredibility))
		if len(matches) == 0 {
			continue
		}

		matched.Add(1)

		g.Go(func() error {
			switch ok, err := n.dispatch(ctx, sub, matches); {
			case err != nil:
				failed.Add(1)
				observability.NotificationsSent.WithLabelValues(observability.StatusError).Inc()
				n.logger.Warn().Err(err).Str(logKeyEmail, sub.Email).Msg("notification dispatch failed")
			case !ok:
				skipped.Add(1)
				observability.NotificationsSent.WithLabelValues(observability.StatusSkipped).Inc()
			default:
				sent.Add(1)
				observability.NotificationsSent.WithLabelValues(observability.StatusSuccess).Inc()
			}

			return nil
		})
	}

	_ = g.Wait()

	res := Result{
		Subscribers: len(subs),
		Matched:     int(matched.Load()),
		Sent:        int(sent.Load()),
		Failed:      int(failed.Load()),
		Skipped:     int(skipped.Load()),
	}

	n.logger.Info().
		Int("subscribers", res.Subscribers).
		Int("matched", res.Matched).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("notification fan-out complete")

	return res, nil
}

func (n *Notifier) dispatch(ctx context.Context, sub domain.Subscriber, matches []Match) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("dispatch panicked: %v", r)
		}
	}()

	msg, err := n.renderer.Render(sub.InterestString(), matches)
	if err != nil {
		return false, err
	}

	observability.NotificationAverageRelevance.Observe(AverageRelevance(matches))

	return n.mailer.Send(ctx, sub.Email, msg.Subject, msg.HTML, msg.Text)
}

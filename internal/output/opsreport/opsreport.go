// Package opsreport posts a short summary of each ingestion cycle to an admin
// Telegram chat.
package opsreport

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/platform/config"
	"github.com/vukovicluka/sheepai/internal/process/pipeline"
)

const maxErrorChars = 300

// sender is the part of the Bot API client used for delivery.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram reports cycles to one chat. The Bot API client is built on first
// use, exactly once. Failures are logged and never surface to the caller.
type Telegram struct {
	cfg    config.OpsReportConfig
	logger *zerolog.Logger

	once   sync.Once
	api    sender
	apiErr error
	newFn  func(token string) (sender, error)
}

var _ pipeline.Reporter = (*Telegram)(nil)

// New creates a reporter for cfg.
func New(cfg config.OpsReportConfig, logger *zerolog.Logger) *Telegram {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Telegram{cfg: cfg, logger: logger, newFn: newBotAPI}
}

// Configured reports whether a token and an admin chat are set.
func (t *Telegram) Configured() bool {
	return t.cfg.BotToken != "" && t.cfg.AdminChatID != 0
}

// ReportCycle sends the cycle summary. It is a no-op when not configured.
func (t *Telegram) ReportCycle(ctx context.Context, report pipeline.CycleReport) {
	if !t.Configured() || ctx.Err() != nil {
		return
	}

	t.once.Do(func() {
		t.api, t.apiErr = t.newFn(t.cfg.BotToken)
		if t.apiErr != nil {
			t.logger.Error().Err(t.apiErr).Msg("failed to create Telegram client, cycle reports disabled")
		}
	})

	if t.apiErr != nil {
		return
	}

	msg := tgbotapi.NewMessage(t.cfg.AdminChatID, Format(report))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.api.Send(msg); err != nil {
		t.logger.Warn().Err(err).Str("cycle_id", report.ID).Msg("failed to send cycle report")
	}
}

// Format renders report as Telegram HTML.
func Format(report pipeline.CycleReport) string {
	var sb strings.Builder

	icon := "✅"
	if report.Err != nil {
		icon = "⚠️"
	}

	fmt.Fprintf(&sb, "%s <b>Ingestion cycle</b> <code>%s</code>\n", icon, html.EscapeString(shortID(report.ID)))
	fmt.Fprintf(&sb, "Outcome: <b>%s</b> in %s\n", html.EscapeString(report.Outcome), report.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "Extracted %d, new %d, persisted %d, skipped %d, failed %d\n",
		report.Extracted, report.New, report.Persisted, report.Skipped, report.Failed)
	fmt.Fprintf(&sb, "Notifications sent %d, failed %d", report.Notified, report.NotifyFailed)

	if report.Err != nil {
		errText := []rune(report.Err.Error())
		if len(errText) > maxErrorChars {
			errText = append(errText[:maxErrorChars], '…')
		}

		fmt.Fprintf(&sb, "\nError: <code>%s</code>", html.EscapeString(string(errText)))
	}

	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func newBotAPI(token string) (sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}

	return api, nil
}

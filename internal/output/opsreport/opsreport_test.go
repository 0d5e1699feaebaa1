package opsreport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukovicluka/sheepai/internal/platform/config"
	"github.com/vukovicluka/sheepai/internal/process/pipeline"
)

type mockSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}

	return tgbotapi.Message{}, m.err
}

func newTestReporter(cfg config.OpsReportConfig, s *mockSender, builds *int) *Telegram {
	r := New(cfg, nil)
	r.newFn = func(string) (sender, error) {
		*builds++
		return s, nil
	}

	return r
}

func TestReportCycle_NotConfigured(t *testing.T) {
	builds := 0
	s := &mockSender{}

	for _, cfg := range []config.OpsReportConfig{{}, {BotToken: "t"}, {AdminChatID: 42}} {
		r := newTestReporter(cfg, s, &builds)
		assert.False(t, r.Configured())
		r.ReportCycle(context.Background(), pipeline.CycleReport{ID: "x"})
	}

	assert.Zero(t, builds)
	assert.Empty(t, s.sent)
}

func TestReportCycle_SendsOnceBuiltClient(t *testing.T) {
	builds := 0
	s := &mockSender{}
	r := newTestReporter(config.OpsReportConfig{BotToken: "t", AdminChatID: 42}, s, &builds)

	r.ReportCycle(context.Background(), pipeline.CycleReport{ID: "a", Outcome: pipeline.OutcomeSuccess})
	r.ReportCycle(context.Background(), pipeline.CycleReport{ID: "b", Outcome: pipeline.OutcomeNoNew})

	assert.Equal(t, 1, builds)
	require.Len(t, s.sent, 2)
	assert.Equal(t, int64(42), s.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, s.sent[0].ParseMode)
}

func TestReportCycle_FailuresAreSwallowed(t *testing.T) {
	s := &mockSender{err: errors.New("flood wait")}
	builds := 0
	r := newTestReporter(config.OpsReportConfig{BotToken: "t", AdminChatID: 1}, s, &builds)

	r.ReportCycle(context.Background(), pipeline.CycleReport{ID: "a"})
	assert.Len(t, s.sent, 1)

	failing := New(config.OpsReportConfig{BotToken: "t", AdminChatID: 1}, nil)
	failing.newFn = func(string) (sender, error) { return nil, errors.New("unauthorized") }

	failing.ReportCycle(context.Background(), pipeline.CycleReport{ID: "a"})
	failing.ReportCycle(context.Background(), pipeline.CycleReport{ID: "b"})
	require.Error(t, failing.apiErr)
}

func TestFormat(t *testing.T) {
	text := Format(pipeline.CycleReport{
		ID:        "0123456789abcdef",
		Outcome:   pipeline.OutcomeSuccess,
		Extracted: 20,
		New:       2,
		Persisted: 2,
		Skipped:   18,
		Notified:  3,
		Duration:  1500 * time.Millisecond,
	})

	assert.Contains(t, text, "<code>01234567</code>")
	assert.Contains(t, text, "<b>success</b> in 1.5s")
	assert.Contains(t, text, "Extracted 20, new 2, persisted 2, skipped 18, failed 0")
	assert.Contains(t, text, "Notifications sent 3, failed 0")
	assert.NotContains(t, text, "Error:")

	failed := Format(pipeline.CycleReport{ID: "x", Outcome: pipeline.OutcomeError, Err: errors.New("fetch <index>: 503")})
	assert.Contains(t, failed, "Error: <code>fetch &lt;index&gt;: 503</code>")
}

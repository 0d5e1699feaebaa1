package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/platform/config"
)

type memStore struct {
	mu          sync.Mutex
	articles    []domain.EnrichedArticle
	subscribers map[string]domain.Subscriber
}

func newMemStore() *memStore {
	return &memStore{subscribers: make(map[string]domain.Subscriber)}
}

func (m *memStore) FindByURLs(_ context.Context, urls []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct{})

	for _, a := range m.articles {
		for _, u := range urls {
			if a.URL == u {
				out[u] = struct{}{}
			}
		}
	}

	return out, nil
}

func (m *memStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	found, err := m.FindByURLs(ctx, []string{url})
	return len(found) > 0, err
}

func (m *memStore) InsertIfAbsent(ctx context.Context, a *domain.EnrichedArticle) error {
	if exists, _ := m.ExistsByURL(ctx, a.URL); exists {
		return apperrors.ErrAlreadyExists
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = fmt.Sprintf("id-%d", len(m.articles)+1)
	m.articles = append(m.articles, *a)

	return nil
}

func (m *memStore) FindMissingEmbeddings(_ context.Context, limit int) ([]domain.EnrichedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.EnrichedArticle

	for _, a := range m.articles {
		if a.Embedding == nil && len(out) < limit {
			out = append(out, a)
		}
	}

	return out, nil
}

func (m *memStore) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.articles {
		if m.articles[i].ID == id {
			m.articles[i].Embedding = embedding
			return nil
		}
	}

	return apperrors.ErrNotFound
}

func (m *memStore) FindAll(_ context.Context, f domain.ArticleFilter) ([]domain.EnrichedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.EnrichedArticle

	for _, a := range m.articles {
		if f.HasEmbedding && a.Embedding == nil {
			continue
		}

		out = append(out, a)
	}

	return out, nil
}

func (m *memStore) ListSubscribers(context.Context) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Subscriber, 0, len(m.subscribers))
	for _, s := range m.subscribers {
		out = append(out, s)
	}

	return out, nil
}

func (m *memStore) UpsertSubscriber(_ context.Context, s domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribers[s.Email] = s

	return nil
}

func (m *memStore) Stats(context.Context) (domain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := domain.Stats{Total: len(m.articles), BySentiment: make(map[domain.Sentiment]int)}

	for _, a := range m.articles {
		stats.BySentiment[a.Sentiment]++
		if a.Embedding != nil {
			stats.WithEmbedding++
		}
	}

	return stats, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) Close() {}

func testConfig(sourceURL string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Backend: config.StoreBackendPostgres},
		Source: config.SourceConfig{
			URL:             sourceURL,
			MaxArticles:     20,
			ContentMaxChars: 10000,
			Timeout:         5 * time.Second,
			UserAgent:       "test",
		},
		Ingest:      config.IngestConfig{Schedule: "@hourly", Timezone: "UTC"},
		LLM:         config.LLMConfig{Model: "test-model", MaxTokens: 256, RateLimitRPS: 1, CircuitThreshold: 5, CircuitTimeout: time.Minute},
		Embedding:   config.EmbeddingConfig{Provider: config.EmbeddingProviderMock, Dimensions: 32},
		Credibility: config.CredibilityConfig{RecentDays: 30},
		Notify:      config.NotifyConfig{Concurrency: 2},
		Mail:        config.MailConfig{Port: 587},
	}
}

const pageText = "Researchers disclosed a critical ransomware campaign that encrypts hospital servers and demands payment in crypto."

func page(title string) string {
	return fmt.Sprintf(`<html><head><meta property="article:published_time" content="2026-03-02T10:00:00Z"></head>
<body><h1 class="story-title">%[1]s</h1><div class="articlebody"><p>%[2]s</p><p>Vendors released patches on Tuesday.</p></div></body></html>`, title, pageText)
}

func TestRunIngest_OnceEndToEnd(t *testing.T) {
	routes := map[string]string{
		"/": `<html><body>
<div class="body-post"><a class="story-link" href="/2026/03/ransomware.html">one</a></div>
<div class="body-post"><a class="story-link" href="/2026/03/phishing.html">two</a></div>
</body></html>`,
		"/2026/03/ransomware.html": page("Ransomware gang targets hospitals"),
		"/2026/03/phishing.html":   page("New phishing kit bypasses MFA"),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	store := newMemStore()
	a := New(testConfig(srv.URL+"/"), store, nil)

	require.NoError(t, a.Subscribe(context.Background(), domain.Subscriber{Email: " Analyst@Example.com ", Category: "ransomware"}))

	require.NoError(t, a.RunIngest(context.Background(), true))
	require.Len(t, store.articles, 2)

	for _, art := range store.articles {
		assert.True(t, strings.HasPrefix(art.URL, srv.URL+"/2026/03/"))
		assert.False(t, art.ScrapedAt.IsZero())
		assert.NotNil(t, art.CredibilityScore)
	}

	require.NoError(t, a.RunIngest(context.Background(), true))
	assert.Len(t, store.articles, 2)

	hits, err := a.Search(context.Background(), SearchParams{Query: "ransomware", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, srv.URL+"/2026/03/ransomware.html", hits[0].Article.URL)
}

func TestRunIngest_ExtractionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := New(testConfig(srv.URL+"/"), newMemStore(), nil).RunIngest(context.Background(), true)
	require.ErrorIs(t, err, apperrors.ErrExtraction)
}

func TestRunIngest_InvalidSchedule(t *testing.T) {
	cfg := testConfig("https://example.com/")
	cfg.Ingest.Schedule = "whenever"

	err := New(cfg, newMemStore(), nil).RunIngest(context.Background(), false)
	require.ErrorIs(t, err, apperrors.ErrInvalidSchedule)
}

func TestSubscribe(t *testing.T) {
	store := newMemStore()
	a := New(testConfig("https://example.com/"), store, nil)

	require.NoError(t, a.Subscribe(context.Background(), domain.Subscriber{Email: "SOC@Example.com", SemanticQuery: "supply chain attacks"}))
	assert.Contains(t, store.subscribers, "soc@example.com")

	err := a.Subscribe(context.Background(), domain.Subscriber{Email: "soc@example.com"})
	require.ErrorIs(t, err, apperrors.ErrInvalidSubscriber)
}

func TestRunBackfill(t *testing.T) {
	store := newMemStore()
	store.articles = []domain.EnrichedArticle{
		{ID: "1", RawArticle: domain.RawArticle{URL: "https://a/1", Title: "Zero day in VPN"}},
		{ID: "2", RawArticle: domain.RawArticle{URL: "https://a/2", Title: "Botnet takedown"}, Embedding: []float32{1}},
	}

	report, err := New(testConfig("https://example.com/"), store, nil).RunBackfill(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Len(t, store.articles[0].Embedding, 32)

	cfg := testConfig("https://example.com/")
	cfg.Embedding.Provider = config.EmbeddingProviderNone

	_, err = New(cfg, store, nil).RunBackfill(context.Background(), 10)
	require.ErrorIs(t, err, apperrors.ErrNotConfigured)
}

func TestWriteHits(t *testing.T) {
	score := 80
	published := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	hits := []domain.ScoredArticle{{
		Article: domain.EnrichedArticle{
			RawArticle:       domain.RawArticle{URL: "https://a/1", Title: "Ransomware gang targets hospitals", PublishedAt: &published},
			Sentiment:        domain.SentimentNegative,
			CredibilityScore: &score,
		},
		Score: 70,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteHits(&buf, hits, false))

	out := buf.String()
	assert.Contains(t, out, "score")
	assert.Contains(t, out, "Ransomware gang targets hospitals")
	assert.Contains(t, out, "2026-03-02")
	assert.Contains(t, out, "80")

	buf.Reset()
	hits[0].Score = 0.87654
	hits[0].Article.CredibilityScore = nil
	require.NoError(t, WriteHits(&buf, hits, true))
	assert.Contains(t, buf.String(), "0.877")
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteStats(&buf, domain.Stats{
		Total:          3,
		WithEmbedding:  2,
		AvgCredibility: 72.5,
		BySentiment:    map[domain.Sentiment]int{domain.SentimentNegative: 2, domain.SentimentNeutral: 1},
	}))

	out := buf.String()
	assert.Contains(t, out, "72.5")
	assert.Less(t, strings.Index(out, "sentiment_negative"), strings.Index(out, "sentiment_neutral"))
}

func TestTruncateForTable(t *testing.T) {
	assert.Equal(t, "short", truncateForTable(" short ", 10))
	assert.Equal(t, "abcd…", truncateForTable("abcdefgh", 5))
}

package credibility

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukovicluka/sheepai/internal/core/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeLLM struct {
	reply     string
	err       error
	available bool
	panics    bool
	prompts   []string
}

func (f *fakeLLM) Available() bool { return f.available }

func (f *fakeLLM) Complete(_ context.Context, prompt, _ string, _ int) (string, error) {
	if f.panics {
		panic("provider bug")
	}

	f.prompts = append(f.prompts, prompt)

	return f.reply, f.err
}

func newTestScorer(client *fakeLLM) *Scorer {
	if client == nil {
		return NewScorer(nil, nil, nil, WithClock(func() time.Time { return testNow }))
	}

	return NewScorer(nil, client, nil, WithClock(func() time.Time { return testNow }))
}

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func TestReputationScore(t *testing.T) {
	r := DefaultReputation()

	tests := []struct {
		url  string
		want int
	}{
		{"https://thehackernews.com/2026/03/article.html", SourceReliable},
		{"https://www.bleepingcomputer.com/news/security/x/", SourceReliable},
		{"https://news.bbc.co.uk/story", SourceReliable},
		{"https://infowars.com/posts/x", SourceUnreliable},
		{"https://unknown-blog.example/post", SourceNeutral},
		{"not a url", SourceNeutral},
		{"", SourceNeutral},
		{"http://[::1", SourceNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Score(tt.url))
		})
	}
}

func TestLoadReputation_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reputation.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reliable:\n  - WWW.Example.org\nunreliable:\n  - wired.com\n"), 0o600))

	r, err := LoadReputation(path)
	require.NoError(t, err)

	assert.Equal(t, SourceReliable, r.Score("https://blog.example.org/a"))
	assert.Equal(t, SourceUnreliable, r.Score("https://www.wired.com/story"))
	assert.Equal(t, SourceReliable, r.Score("https://thehackernews.com/"))
}

func TestLoadReputation_Errors(t *testing.T) {
	_, err := LoadReputation(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reliable: [unterminated"), 0o600))

	_, err = LoadReputation(path)
	assert.Error(t, err)
}

func TestScore_DegradedWithoutAI(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{name: "known reliable", url: "https://thehackernews.com/2026/03/x.html", want: 100},
		{name: "unknown", url: "https://someblog.example/x", want: 50},
		{name: "unreliable", url: "https://naturalnews.com/x", want: 0},
		{name: "malformed", url: "::::", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestScorer(nil).Score(context.Background(), Input{URL: tt.url, Author: "Dr. Jane Roe", PublishedAt: daysAgo(1)})

			assert.Equal(t, tt.want, res.Score)
			assert.Equal(t, domain.CredibilityDegraded, res.Mode)
			assert.Zero(t, res.AI)
		})
	}
}

func TestScore_UnavailableClientIsDegraded(t *testing.T) {
	res := newTestScorer(&fakeLLM{available: false}).Score(context.Background(), Input{URL: "https://thehackernews.com/x"})

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, domain.CredibilityDegraded, res.Mode)
}

func TestScore_StructuredRubric(t *testing.T) {
	client := &fakeLLM{
		available: true,
		reply:     "```json\n{\"factualAccuracy\": 90, \"sensationalism\": 10, \"bias\": 80, \"citationQuality\": 70, \"reasoning\": \"solid\"}\n```",
	}

	res := newTestScorer(client).Score(context.Background(), Input{
		URL:         "https://someblog.example/x",
		Title:       "Patch now",
		Author:      "John Smith",
		PublishedAt: daysAgo(3),
	})

	// 27 + 18 + 12 + 10.5 = 67.5 -> 68
	assert.Equal(t, 68, res.AI)
	assert.Equal(t, SourceNeutral, res.Source)
	assert.Equal(t, TemporalRecent, res.Temporal)
	assert.Equal(t, AuthorNamed, res.Author)
	assert.Equal(t, 68+10+5+2, res.Score)
	assert.Equal(t, domain.CredibilityFull, res.Mode)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Title: Patch now")
}

func TestScore_ClampedAt100(t *testing.T) {
	client := &fakeLLM{available: true, reply: `{"factualAccuracy":100,"sensationalism":0,"bias":100,"citationQuality":100}`}

	res := newTestScorer(client).Score(context.Background(), Input{
		URL:         "https://krebsonsecurity.com/x",
		Author:      "Security researcher Brian",
		PublishedAt: daysAgo(0),
	})

	assert.Equal(t, MaxAIScore, res.AI)
	assert.Equal(t, 100, res.Score)
}

func TestScore_HeuristicFallback(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeLLM
		in     Input
		wantAI int
	}{
		{
			name:   "call fails, stale, blank author",
			client: &fakeLLM{available: true, err: errors.New("timeout")},
			in:     Input{URL: "https://someblog.example/x"},
			// 0.3*65 + 0.2*65 + 0.15*65 + 0.15*50 = 19.5+13+9.75+7.5 = 49.75
			wantAI: 50,
		},
		{
			name:   "call fails, recent, credentialed author",
			client: &fakeLLM{available: true, err: errors.New("timeout")},
			in:     Input{URL: "https://someblog.example/x", Author: "Prof. Alice", PublishedAt: daysAgo(2)},
			// 0.3*70 + 13 + 9.75 + 0.15*60 = 21+13+9.75+9 = 52.75
			wantAI: 53,
		},
		{
			name:   "free text with tokens",
			client: &fakeLLM{available: true, reply: "Factual accuracy: 80\nSensationalism = 20\nBias: 70\nno citation info"},
			in:     Input{URL: "https://someblog.example/x", Author: "Bob"},
			// 24 + 16 + 10.5 + 0.15*55 = 24+16+10.5+8.25 = 58.75
			wantAI: 59,
		},
		{
			name:   "schema violation falls back to tokens",
			client: &fakeLLM{available: true, reply: `{"factualAccuracy": 150, "sensationalism": 20}`},
			in:     Input{URL: "https://someblog.example/x", Author: "Bob"},
			// factual clamped to 100: 30 + 16 + 9.75 + 8.25 = 64
			wantAI: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestScorer(tt.client).Score(context.Background(), tt.in)

			assert.Equal(t, domain.CredibilityHeuristic, res.Mode)
			assert.Equal(t, tt.wantAI, res.AI)
			assert.Equal(t, clamp(res.AI+res.Source+res.Temporal+res.Author, 0, 100), res.Score)
		})
	}
}

func TestScore_PanicFallsBackToSourceOnly(t *testing.T) {
	res := newTestScorer(&fakeLLM{available: true, panics: true}).Score(context.Background(), Input{URL: "https://thehackernews.com/x"})

	assert.Equal(t, domain.CredibilitySourceOnly, res.Mode)
	assert.Equal(t, 100, res.Score)
}

func TestScore_AlwaysInRange(t *testing.T) {
	replies := []string{"", "garbage", `{"factualAccuracy":0,"sensationalism":100,"bias":0,"citationQuality":0}`, `{"factualAccuracy":100,"sensationalism":0,"bias":100,"citationQuality":100}`}
	urls := []string{"https://thehackernews.com/a", "https://infowars.com/b", "bad", ""}

	for _, reply := range replies {
		for _, u := range urls {
			res := newTestScorer(&fakeLLM{available: true, reply: reply}).Score(context.Background(), Input{URL: u, Author: "Dr. X", PublishedAt: daysAgo(1)})

			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
			assert.LessOrEqual(t, res.AI, MaxAIScore)
			assert.LessOrEqual(t, res.Source, SourceReliable)
			assert.LessOrEqual(t, res.Temporal, TemporalRecent)
			assert.LessOrEqual(t, res.Author, AuthorCredential)
		}
	}
}

func TestAuthorScore(t *testing.T) {
	assert.Equal(t, AuthorBlank, authorScore("   "))
	assert.Equal(t, AuthorCredential, authorScore("Dr. Jane Roe"))
	assert.Equal(t, AuthorCredential, authorScore("Jane Roe, PhD"))
	assert.Equal(t, AuthorCredential, authorScore("Senior Threat Analyst"))
	assert.Equal(t, AuthorNamed, authorScore("Ravie Lakshmanan"))
}
